package models

import (
	"time"

	"github.com/lib/pq"
)

// TeacherRequestStatus tracks the review state of an onboarding request.
// PENDING requests are reviewed exactly once; APPROVED and REJECTED are
// both terminal.
type TeacherRequestStatus string

const (
	TeacherRequestPending  TeacherRequestStatus = "PENDING"
	TeacherRequestApproved TeacherRequestStatus = "APPROVED"
	TeacherRequestRejected TeacherRequestStatus = "REJECTED"
)

// TeacherRequest identifies a prospective teacher's signup awaiting review.
type TeacherRequest struct {
	ID              string               `db:"id" json:"id"`
	FirstName       string               `db:"first_name" json:"first_name"`
	LastName        string               `db:"last_name" json:"last_name"`
	YearsExperience int                  `db:"years_experience" json:"years_experience"`
	Employment      string               `db:"employment" json:"employment"`
	SubjectIDs      pq.StringArray       `db:"subject_ids" json:"subject_ids"`
	Bio             string               `db:"bio" json:"bio"`
	Contact         string               `db:"contact" json:"contact"`
	Status          TeacherRequestStatus `db:"status" json:"status"`
	ReviewedBy      *string              `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time           `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
}

// TeacherRequestFilter captures filtering options for the review queue.
type TeacherRequestFilter struct {
	Status   *TeacherRequestStatus
	Page     int
	PageSize int
}
