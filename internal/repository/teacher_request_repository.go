package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumarket/edumarket-api/internal/models"
)

const teacherRequestColumns = "id, first_name, last_name, years_experience, employment, subject_ids, bio, contact, status, reviewed_by, reviewed_at, created_at"

// TeacherRequestRepository manages persistence for onboarding requests.
type TeacherRequestRepository struct {
	db *sqlx.DB
}

// NewTeacherRequestRepository constructs a TeacherRequestRepository.
func NewTeacherRequestRepository(db *sqlx.DB) *TeacherRequestRepository {
	return &TeacherRequestRepository{db: db}
}

// List returns onboarding requests, most recent first, with total count.
func (r *TeacherRequestRepository) List(ctx context.Context, filter models.TeacherRequestFilter) ([]models.TeacherRequest, int, error) {
	base := "FROM teacher_requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", teacherRequestColumns, base, size, offset)
	var requests []models.TeacherRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teacher requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teacher requests: %w", err)
	}

	return requests, total, nil
}

// FindByID fetches an onboarding request by ID.
func (r *TeacherRequestRepository) FindByID(ctx context.Context, id string) (*models.TeacherRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_requests WHERE id = $1", teacherRequestColumns)
	var request models.TeacherRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a new onboarding request.
func (r *TeacherRequestRepository) Create(ctx context.Context, request *models.TeacherRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO teacher_requests (id, first_name, last_name, years_experience, employment, subject_ids, bio, contact, status, reviewed_by, reviewed_at, created_at)
		VALUES (:id, :first_name, :last_name, :years_experience, :employment, :subject_ids, :bio, :contact, :status, :reviewed_by, :reviewed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create teacher request: %w", err)
	}
	return nil
}

// MarkReviewed records the review outcome. The PENDING guard in the WHERE
// clause makes review a one-shot action; zero rows means the request was
// already reviewed. An unknown reviewer stays NULL, not "".
func (r *TeacherRequestRepository) MarkReviewed(ctx context.Context, id string, status models.TeacherRequestStatus, reviewerID string) (bool, error) {
	reviewedBy := sql.NullString{String: reviewerID, Valid: reviewerID != ""}
	const query = `UPDATE teacher_requests SET status = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, time.Now().UTC(), models.TeacherRequestPending)
	if err != nil {
		return false, fmt.Errorf("mark teacher request reviewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark teacher request reviewed rows: %w", err)
	}
	return affected > 0, nil
}
