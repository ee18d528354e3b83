package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
)

const (
	eligibleCacheKeyFormat = "roster:eligible:%s"
	eligibleCachePattern   = "roster:eligible:*"
)

type rosterRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// UpdateTeacherProfileRequest carries the editable roster fields.
type UpdateTeacherProfileRequest struct {
	FullName     string   `json:"full_name" validate:"required,max=200"`
	PhotoURL     string   `json:"photo_url" validate:"omitempty,url"`
	SubjectIDs   []string `json:"subject_ids" validate:"required,min=1,dive,required"`
	Experience   string   `json:"experience" validate:"omitempty,max=200"`
	Education    string   `json:"education" validate:"omitempty,max=500"`
	PricePerHour float64  `json:"price_per_hour" validate:"gt=0"`
	Bio          string   `json:"bio" validate:"omitempty,max=2000"`
}

// RosterService serves the public roster and its per-subject views.
type RosterService struct {
	repo      rosterRepository
	cache     rosterCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(repo rosterRepository, cache rosterCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RosterService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns roster entries matching the filter plus pagination data.
func (s *RosterService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single roster entry.
func (s *RosterService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// EligibleForSubject returns active teachers covering the subject, keeping
// roster order. The result is cached per subject for a short window since
// matching runs on every open application submitted.
func (s *RosterService) EligibleForSubject(ctx context.Context, subjectID string) ([]models.Teacher, error) {
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject id is required")
	}

	key := fmt.Sprintf(eligibleCacheKeyFormat, subjectID)
	if s.cache != nil {
		var cached []models.Teacher
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("eligible teacher cache read failed", zap.String("subject_id", subjectID), zap.Error(err))
		}
	}

	teachers, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible teachers")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, teachers, s.cacheTTL); err != nil {
			s.logger.Warn("eligible teacher cache write failed", zap.String("subject_id", subjectID), zap.Error(err))
		}
	}

	return teachers, nil
}

// UpdateProfile edits a roster entry. Admins may edit anyone; teachers may
// only edit their own entry.
func (s *RosterService) UpdateProfile(ctx context.Context, id string, req UpdateTeacherProfileRequest, actor *models.JWTClaims) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher profile payload")
	}
	if actor != nil && actor.Role == models.RoleTeacher && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only edit their own profile")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	teacher.FullName = req.FullName
	teacher.PhotoURL = req.PhotoURL
	teacher.SubjectIDs = req.SubjectIDs
	teacher.Experience = req.Experience
	teacher.Education = req.Education
	teacher.PricePerHour = req.PricePerHour
	teacher.Bio = req.Bio

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	s.invalidateEligibleCache(ctx)
	return teacher, nil
}

// Deactivate removes a teacher from the active roster without deleting the row.
func (s *RosterService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	s.invalidateEligibleCache(ctx)
	return nil
}

// InvalidateEligibleCache drops every cached per-subject view. Called after
// roster writes performed outside this service, such as request approval.
func (s *RosterService) InvalidateEligibleCache(ctx context.Context) {
	s.invalidateEligibleCache(ctx)
}

func (s *RosterService) invalidateEligibleCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, eligibleCachePattern); err != nil {
		s.logger.Warn("eligible teacher cache invalidation failed", zap.Error(err))
	}
}
