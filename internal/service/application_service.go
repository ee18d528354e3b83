package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.StudentApplication, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentApplication, error)
	ListOpenForSubjects(ctx context.Context, subjectIDs []string) ([]models.StudentApplication, error)
	Create(ctx context.Context, app *models.StudentApplication) error
	Assign(ctx context.Context, id, teacherID, lessonRoomID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) (bool, error)
}

type applicationTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type applicationSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type applicationUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type submissionAnnouncer interface {
	Announce(subject string, fields map[string]string)
}

// SubmitApplicationRequest represents payload for a new tutoring request.
type SubmitApplicationRequest struct {
	Name              string   `json:"name" validate:"required,max=200"`
	Email             string   `json:"email" validate:"required,email"`
	Phone             string   `json:"phone" validate:"required,max=50"`
	SubjectID         string   `json:"subject_id" validate:"required"`
	Level             string   `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Goal              string   `json:"goal" validate:"omitempty,max=2000"`
	PreferredDate     string   `json:"preferred_date" validate:"omitempty,datetime=2006-01-02"`
	PreferredWeekdays []string `json:"preferred_weekdays" validate:"omitempty,max=7,dive,oneof=mon tue wed thu fri sat sun"`
	PreferredWindow   string   `json:"preferred_window" validate:"omitempty,max=200"`
	Timezone          string   `json:"timezone" validate:"omitempty,oneof=local astana"`
}

// ApplicationService applies intake and transition operations on student
// applications, preserving the forward-only status lifecycle.
type ApplicationService struct {
	repo       applicationRepository
	teachers   applicationTeacherRepository
	subjects   applicationSubjectRepository
	users      applicationUserRepository
	notifier   submissionAnnouncer
	validator  *validator.Validate
	logger     *zap.Logger
	roomPrefix string
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(
	repo applicationRepository,
	teachers applicationTeacherRepository,
	subjects applicationSubjectRepository,
	users applicationUserRepository,
	notifier submissionAnnouncer,
	validate *validator.Validate,
	logger *zap.Logger,
	roomPrefix string,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if roomPrefix == "" {
		roomPrefix = "edumarket"
	}
	return &ApplicationService{
		repo:       repo,
		teachers:   teachers,
		subjects:   subjects,
		users:      users,
		notifier:   notifier,
		validator:  validate,
		logger:     logger,
		roomPrefix: roomPrefix,
	}
}

// Submit creates a new application with status NEW. Unauthenticated
// submitters get a student account provisioned from the submitted
// name/email so they can view their applications later.
func (s *ApplicationService) Submit(ctx context.Context, req SubmitApplicationRequest, actor *models.JWTClaims) (*models.StudentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}

	studentID, err := s.resolveStudentID(ctx, req, actor)
	if err != nil {
		return nil, err
	}

	app := &models.StudentApplication{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		StudentName:     strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		SubjectID:       req.SubjectID,
		Level:           models.StudentLevel(req.Level),
		Goal:            strings.TrimSpace(req.Goal),
		PreferredWindow: strings.TrimSpace(req.PreferredWindow),
		Status:          models.ApplicationNew,
	}
	if len(req.PreferredWeekdays) > 0 {
		app.PreferredWeekdays = req.PreferredWeekdays
	}
	if req.PreferredDate != "" {
		date, parseErr := time.Parse("2006-01-02", req.PreferredDate)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid preferred date")
		}
		app.PreferredDate = &date
	}
	if req.Timezone != "" {
		app.Timezone = models.TimezoneVariant(req.Timezone)
	}

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	if s.notifier != nil {
		s.notifier.Announce("New tutoring application", map[string]string{
			"application_id": app.ID,
			"student":        app.StudentName,
			"email":          app.Email,
			"phone":          app.Phone,
			"subject_id":     app.SubjectID,
			"level":          string(app.Level),
		})
	}

	return app, nil
}

// Assign binds a teacher to the application and schedules the lesson. The
// application must still be open, the teacher must be active and must teach
// the application's subject. Non-admin actors may only assign themselves.
func (s *ApplicationService) Assign(ctx context.Context, appID, teacherID string, actor *models.JWTClaims) (*models.StudentApplication, error) {
	if actor != nil && actor.Role == models.RoleTeacher && actor.UserID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only accept applications for themselves")
	}

	app, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if !app.Status.CanTransitionTo(models.ApplicationScheduled) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("application is already %s", app.Status))
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}
	if !teacher.Teaches(app.SubjectID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher does not teach the requested subject")
	}

	roomID := s.LessonRoomID(app.ID)
	ok, err := s.repo.Assign(ctx, app.ID, teacher.ID, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application was assigned concurrently")
	}

	app.Status = models.ApplicationScheduled
	app.AssignedTeacherID = &teacher.ID
	app.LessonRoomID = &roomID
	return app, nil
}

// Complete moves a scheduled application to COMPLETED. Admins may complete
// any lesson; a teacher only their own.
func (s *ApplicationService) Complete(ctx context.Context, appID string, actor *models.JWTClaims) (*models.StudentApplication, error) {
	app, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if actor != nil && actor.Role == models.RoleTeacher {
		if app.AssignedTeacherID == nil || *app.AssignedTeacherID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
		}
	}

	if app.Status != models.ApplicationScheduled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot complete application in status %s", app.Status))
	}

	ok, err := s.repo.UpdateStatus(ctx, app.ID, models.ApplicationScheduled, models.ApplicationCompleted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete application")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application changed concurrently")
	}

	app.Status = models.ApplicationCompleted
	return app, nil
}

// List returns applications plus pagination data.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.StudentApplication, *models.Pagination, error) {
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListForStudent returns the student's own applications, most recent first.
func (s *ApplicationService) ListForStudent(ctx context.Context, studentID string) ([]models.StudentApplication, error) {
	apps, _, err := s.repo.List(ctx, models.ApplicationFilter{StudentID: studentID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student applications")
	}
	return apps, nil
}

// OpenForTeacher returns NEW applications whose subject the teacher covers.
func (s *ApplicationService) OpenForTeacher(ctx context.Context, teacherID string) ([]models.StudentApplication, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if len(teacher.SubjectIDs) == 0 {
		return []models.StudentApplication{}, nil
	}

	apps, err := s.repo.ListOpenForSubjects(ctx, teacher.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open applications")
	}
	return apps, nil
}

// LessonRoomID derives the lesson room identifier from the application id.
// The derivation is a pure function so repeated reads produce the same room.
func (s *ApplicationService) LessonRoomID(appID string) string {
	sum := sha256.Sum256([]byte(appID))
	return fmt.Sprintf("%s-%s", s.roomPrefix, hex.EncodeToString(sum[:])[:16])
}

func (s *ApplicationService) resolveStudentID(ctx context.Context, req SubmitApplicationRequest, actor *models.JWTClaims) (string, error) {
	if actor != nil && actor.UserID != "" {
		return actor.UserID, nil
	}

	email := strings.TrimSpace(req.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student account")
	}

	// Provision a password-less account; the student can claim it later via
	// a reset flow.
	user := &models.User{
		ID:       uuid.NewString(),
		Email:    email,
		FullName: strings.TrimSpace(req.Name),
		Role:     models.RoleStudent,
		Active:   true,
	}
	// A submission stored without a reachable account would never show up in
	// the student's own view, so provisioning failure fails the submit.
	if err := s.users.Create(ctx, user); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision student account")
	}
	return user.ID, nil
}
