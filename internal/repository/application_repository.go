package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edumarket/edumarket-api/internal/models"
)

const applicationColumns = "id, student_id, student_name, email, phone, subject_id, level, goal, preferred_date, preferred_weekdays, preferred_window, timezone, status, assigned_teacher_id, lesson_room_id, created_at, updated_at"

// ApplicationRepository manages persistence for student applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns applications matching filters, most recent first, with total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.StudentApplication, int, error) {
	base := "FROM student_applications WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", applicationColumns, base, size, offset)
	var apps []models.StudentApplication
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	return apps, total, nil
}

// FindByID fetches an application by ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.StudentApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM student_applications WHERE id = $1", applicationColumns)
	var app models.StudentApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListOpenForSubjects returns NEW applications whose subject is in the given
// list, most recent first. Used for a teacher's open-applications view.
func (r *ApplicationRepository) ListOpenForSubjects(ctx context.Context, subjectIDs []string) ([]models.StudentApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM student_applications WHERE status = $1 AND subject_id = ANY($2) ORDER BY created_at DESC", applicationColumns)
	var apps []models.StudentApplication
	if err := r.db.SelectContext(ctx, &apps, query, models.ApplicationNew, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list open applications: %w", err)
	}
	return apps, nil
}

// Create inserts a new application record.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.StudentApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now

	const query = `INSERT INTO student_applications (id, student_id, student_name, email, phone, subject_id, level, goal, preferred_date, preferred_weekdays, preferred_window, timezone, status, assigned_teacher_id, lesson_room_id, created_at, updated_at)
		VALUES (:id, :student_id, :student_name, :email, :phone, :subject_id, :level, :goal, :preferred_date, :preferred_weekdays, :preferred_window, :timezone, :status, :assigned_teacher_id, :lesson_room_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// Assign binds a teacher and lesson room to the application and moves it to
// SCHEDULED. The status guard in the WHERE clause makes the transition atomic;
// zero rows means the application was already past assignment.
func (r *ApplicationRepository) Assign(ctx context.Context, id, teacherID, lessonRoomID string) (bool, error) {
	const query = `UPDATE student_applications SET status = $2, assigned_teacher_id = $3, lesson_room_id = $4, updated_at = $5 WHERE id = $1 AND status IN ($6, $7)`
	res, err := r.db.ExecContext(ctx, query, id, models.ApplicationScheduled, teacherID, lessonRoomID, time.Now().UTC(), models.ApplicationNew, models.ApplicationTeacherFound)
	if err != nil {
		return false, fmt.Errorf("assign application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign application rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateStatus moves the application to the target status guarded by the
// expected current status.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) (bool, error) {
	const query = `UPDATE student_applications SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), from)
	if err != nil {
		return false, fmt.Errorf("update application status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update application status rows: %w", err)
	}
	return affected > 0, nil
}
