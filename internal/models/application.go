package models

import (
	"time"

	"github.com/lib/pq"
)

// ApplicationStatus tracks the lifecycle of a student application. Transitions
// only move forward: NEW -> TEACHER_FOUND -> SCHEDULED -> COMPLETED.
type ApplicationStatus string

const (
	ApplicationNew          ApplicationStatus = "NEW"
	ApplicationTeacherFound ApplicationStatus = "TEACHER_FOUND"
	ApplicationScheduled    ApplicationStatus = "SCHEDULED"
	ApplicationCompleted    ApplicationStatus = "COMPLETED"
)

// CanTransitionTo reports whether moving to the target status is a forward
// step in the lifecycle.
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	order := map[ApplicationStatus]int{
		ApplicationNew:          0,
		ApplicationTeacherFound: 1,
		ApplicationScheduled:    2,
		ApplicationCompleted:    3,
	}
	from, okFrom := order[s]
	to, okTo := order[target]
	return okFrom && okTo && to > from
}

// StudentLevel enumerates the self-reported proficiency levels.
type StudentLevel string

const (
	LevelBeginner     StudentLevel = "beginner"
	LevelIntermediate StudentLevel = "intermediate"
	LevelAdvanced     StudentLevel = "advanced"
)

// TimezoneVariant selects how the preferred time window is interpreted.
type TimezoneVariant string

const (
	TimezoneLocal  TimezoneVariant = "local"
	TimezoneAstana TimezoneVariant = "astana"
)

// StudentApplication identifies one tutoring request.
type StudentApplication struct {
	ID                string            `db:"id" json:"id"`
	StudentID         string            `db:"student_id" json:"student_id"`
	StudentName       string            `db:"student_name" json:"student_name"`
	Email             string            `db:"email" json:"email"`
	Phone             string            `db:"phone" json:"phone"`
	SubjectID         string            `db:"subject_id" json:"subject_id"`
	Level             StudentLevel      `db:"level" json:"level"`
	Goal              string            `db:"goal" json:"goal"`
	PreferredDate     *time.Time        `db:"preferred_date" json:"preferred_date,omitempty"`
	PreferredWeekdays pq.StringArray    `db:"preferred_weekdays" json:"preferred_weekdays,omitempty"`
	PreferredWindow   string            `db:"preferred_window" json:"preferred_window,omitempty"`
	Timezone          TimezoneVariant   `db:"timezone" json:"timezone,omitempty"`
	Status            ApplicationStatus `db:"status" json:"status"`
	AssignedTeacherID *string           `db:"assigned_teacher_id" json:"assigned_teacher_id,omitempty"`
	LessonRoomID      *string           `db:"lesson_room_id" json:"lesson_room_id,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationFilter captures filtering options for listing applications.
type ApplicationFilter struct {
	Status    *ApplicationStatus
	SubjectID string
	StudentID string
	Page      int
	PageSize  int
}
