package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents a bookable tutor on the active roster.
type Teacher struct {
	ID           string         `db:"id" json:"id"`
	FullName     string         `db:"full_name" json:"full_name"`
	PhotoURL     string         `db:"photo_url" json:"photo_url"`
	SubjectIDs   pq.StringArray `db:"subject_ids" json:"subject_ids"`
	Experience   string         `db:"experience" json:"experience"`
	Education    string         `db:"education" json:"education"`
	PricePerHour float64        `db:"price_per_hour" json:"price_per_hour"`
	Bio          string         `db:"bio" json:"bio"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Teaches reports whether the teacher covers the given subject.
func (t Teacher) Teaches(subjectID string) bool {
	for _, id := range t.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing the roster.
type TeacherFilter struct {
	SubjectID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
}
