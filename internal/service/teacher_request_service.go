package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
)

type teacherRequestRepository interface {
	List(ctx context.Context, filter models.TeacherRequestFilter) ([]models.TeacherRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherRequest, error)
	Create(ctx context.Context, request *models.TeacherRequest) error
	MarkReviewed(ctx context.Context, id string, status models.TeacherRequestStatus, reviewerID string) (bool, error)
}

type requestRosterRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) error
}

// SubmitTeacherRequest represents payload for a teacher signup.
type SubmitTeacherRequest struct {
	FirstName       string   `json:"first_name" validate:"required,max=100"`
	LastName        string   `json:"last_name" validate:"required,max=100"`
	YearsExperience int      `json:"years_experience" validate:"gte=0,lte=80"`
	Employment      string   `json:"employment" validate:"required,max=500"`
	SubjectIDs      []string `json:"subject_ids" validate:"required,min=1,dive,required"`
	Bio             string   `json:"bio" validate:"omitempty,max=2000"`
	Contact         string   `json:"contact" validate:"required,max=200"`
}

// RosterDefaults supplies the values filled in for roster entries created
// from approved requests.
type RosterDefaults struct {
	BaselinePricePerHour float64
	AvatarURLTemplate    string
}

// TeacherRequestService manages the vetting lifecycle of onboarding requests.
type TeacherRequestService struct {
	repo      teacherRequestRepository
	roster    requestRosterRepository
	notifier  submissionAnnouncer
	validator *validator.Validate
	logger    *zap.Logger
	defaults  RosterDefaults
}

// NewTeacherRequestService constructs a TeacherRequestService.
func NewTeacherRequestService(
	repo teacherRequestRepository,
	roster requestRosterRepository,
	notifier submissionAnnouncer,
	validate *validator.Validate,
	logger *zap.Logger,
	defaults RosterDefaults,
) *TeacherRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.BaselinePricePerHour <= 0 {
		defaults.BaselinePricePerHour = 1500
	}
	if defaults.AvatarURLTemplate == "" {
		defaults.AvatarURLTemplate = "https://picsum.photos/seed/%s/200/200"
	}
	return &TeacherRequestService{
		repo:      repo,
		roster:    roster,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
	}
}

// Submit registers a PENDING onboarding request.
func (s *TeacherRequestService) Submit(ctx context.Context, req SubmitTeacherRequest) (*models.TeacherRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher signup payload")
	}

	request := &models.TeacherRequest{
		ID:              uuid.NewString(),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		YearsExperience: req.YearsExperience,
		Employment:      strings.TrimSpace(req.Employment),
		SubjectIDs:      req.SubjectIDs,
		Bio:             strings.TrimSpace(req.Bio),
		Contact:         strings.TrimSpace(req.Contact),
		Status:          models.TeacherRequestPending,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher request")
	}

	if s.notifier != nil {
		s.notifier.Announce("New teacher signup", map[string]string{
			"request_id": request.ID,
			"name":       request.FirstName + " " + request.LastName,
			"subjects":   strings.Join(request.SubjectIDs, ","),
			"contact":    request.Contact,
		})
	}

	return request, nil
}

// List returns the review queue plus pagination data.
func (s *TeacherRequestService) List(ctx context.Context, filter models.TeacherRequestFilter) ([]models.TeacherRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Approve accepts a PENDING request and creates exactly one roster entry.
// Approving a request twice returns a conflict instead of duplicating the
// teacher: the one-shot review guard lives in the repository update.
func (s *TeacherRequestService) Approve(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.Teacher, error) {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TeacherRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request already %s", strings.ToLower(string(request.Status))))
	}

	ok, err := s.repo.MarkReviewed(ctx, request.ID, models.TeacherRequestApproved, reviewerID(actor))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve teacher request")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request was reviewed concurrently")
	}

	// Roster id is derived from the request id so re-imports stay stable.
	teacher := &models.Teacher{
		ID:           request.ID,
		FullName:     request.FirstName + " " + request.LastName,
		PhotoURL:     fmt.Sprintf(s.defaults.AvatarURLTemplate, request.ID),
		SubjectIDs:   request.SubjectIDs,
		Experience:   fmt.Sprintf("%d years", request.YearsExperience),
		Education:    request.Employment,
		PricePerHour: s.defaults.BaselinePricePerHour,
		Bio:          request.Bio,
		Active:       true,
	}
	if err := s.roster.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create roster entry")
	}

	return teacher, nil
}

// Reject declines a PENDING request. Rejection is terminal and creates no
// roster entry.
func (s *TeacherRequestService) Reject(ctx context.Context, requestID string, actor *models.JWTClaims) error {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.TeacherRequestPending {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request already %s", strings.ToLower(string(request.Status))))
	}

	ok, err := s.repo.MarkReviewed(ctx, request.ID, models.TeacherRequestRejected, reviewerID(actor))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject teacher request")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrConflict, "request was reviewed concurrently")
	}
	return nil
}

func (s *TeacherRequestService) findRequest(ctx context.Context, id string) (*models.TeacherRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher request")
	}
	return request, nil
}

func reviewerID(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}
