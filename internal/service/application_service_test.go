package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
)

type fakeApplicationRepo struct {
	apps    map[string]*models.StudentApplication
	open    []models.StudentApplication
	listed  []models.StudentApplication
	created []*models.StudentApplication
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: make(map[string]*models.StudentApplication)}
}

func (f *fakeApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.StudentApplication, int, error) {
	return f.listed, len(f.listed), nil
}

func (f *fakeApplicationRepo) FindByID(ctx context.Context, id string) (*models.StudentApplication, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *app
	return &copied, nil
}

func (f *fakeApplicationRepo) ListOpenForSubjects(ctx context.Context, subjectIDs []string) ([]models.StudentApplication, error) {
	return f.open, nil
}

func (f *fakeApplicationRepo) Create(ctx context.Context, app *models.StudentApplication) error {
	copied := *app
	f.apps[app.ID] = &copied
	f.created = append(f.created, &copied)
	return nil
}

func (f *fakeApplicationRepo) Assign(ctx context.Context, id, teacherID, lessonRoomID string) (bool, error) {
	app, ok := f.apps[id]
	if !ok {
		return false, nil
	}
	if app.Status != models.ApplicationNew && app.Status != models.ApplicationTeacherFound {
		return false, nil
	}
	app.Status = models.ApplicationScheduled
	app.AssignedTeacherID = &teacherID
	app.LessonRoomID = &lessonRoomID
	return true, nil
}

func (f *fakeApplicationRepo) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) (bool, error) {
	app, ok := f.apps[id]
	if !ok || app.Status != from {
		return false, nil
	}
	app.Status = to
	return true, nil
}

type fakeTeacherLookup struct {
	teachers map[string]*models.Teacher
}

func (f *fakeTeacherLookup) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

type fakeSubjectLookup struct {
	subjects map[string]*models.Subject
}

func (f *fakeSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

type fakeUserStore struct {
	byEmail   map[string]*models.User
	created   []*models.User
	createErr error
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, user)
	return nil
}

type fakeAnnouncer struct {
	subjects []string
	fields   []map[string]string
}

func (f *fakeAnnouncer) Announce(subject string, fields map[string]string) {
	f.subjects = append(f.subjects, subject)
	f.fields = append(f.fields, fields)
}

func newApplicationFixture() (*ApplicationService, *fakeApplicationRepo, *fakeTeacherLookup, *fakeUserStore, *fakeAnnouncer) {
	repo := newFakeApplicationRepo()
	teachers := &fakeTeacherLookup{teachers: map[string]*models.Teacher{
		"t1": {ID: "t1", FullName: "Teacher One", SubjectIDs: []string{"1", "7"}, Active: true},
		"t2": {ID: "t2", FullName: "Teacher Two", SubjectIDs: []string{"2"}, Active: true},
		"t3": {ID: "t3", FullName: "Inactive", SubjectIDs: []string{"1"}, Active: false},
	}}
	subjects := &fakeSubjectLookup{subjects: map[string]*models.Subject{
		"1": {ID: "1", Name: "English"},
		"2": {ID: "2", Name: "Mathematics"},
	}}
	users := &fakeUserStore{byEmail: map[string]*models.User{}}
	announcer := &fakeAnnouncer{}
	svc := NewApplicationService(repo, teachers, subjects, users, announcer, validator.New(), zap.NewNop(), "edumarket")
	return svc, repo, teachers, users, announcer
}

func validSubmission() SubmitApplicationRequest {
	return SubmitApplicationRequest{
		Name:      "Alia Nurlanova",
		Email:     "alia@example.com",
		Phone:     "+7 700 000 0000",
		SubjectID: "1",
		Level:     "beginner",
		Goal:      "conversational practice",
	}
}

func TestApplicationServiceSubmit(t *testing.T) {
	svc, repo, _, users, announcer := newApplicationFixture()

	app, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationNew, app.Status)
	assert.Nil(t, app.AssignedTeacherID)
	assert.Nil(t, app.LessonRoomID)
	assert.Len(t, repo.created, 1)
	require.Len(t, users.created, 1)
	assert.Equal(t, models.RoleStudent, users.created[0].Role)
	assert.Equal(t, app.StudentID, users.created[0].ID)
	require.Len(t, announcer.subjects, 1)
	assert.Equal(t, app.ID, announcer.fields[0]["application_id"])
}

func TestApplicationServiceSubmitReusesAccount(t *testing.T) {
	svc, _, _, users, _ := newApplicationFixture()
	users.byEmail["alia@example.com"] = &models.User{ID: "u9", Email: "alia@example.com"}

	app, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)
	assert.Equal(t, "u9", app.StudentID)
	assert.Empty(t, users.created)
}

func TestApplicationServiceSubmitProvisioningFailure(t *testing.T) {
	svc, repo, _, users, announcer := newApplicationFixture()
	users.createErr = errors.New("unique constraint violated")

	_, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created, "no application may be stored without a reachable owner")
	assert.Empty(t, announcer.subjects)
}

func TestApplicationServiceSubmitAuthenticated(t *testing.T) {
	svc, _, _, users, _ := newApplicationFixture()
	actor := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}

	app, err := svc.Submit(context.Background(), validSubmission(), actor)
	require.NoError(t, err)
	assert.Equal(t, "u1", app.StudentID)
	assert.Empty(t, users.created)
}

func TestApplicationServiceSubmitUnknownSubject(t *testing.T) {
	svc, _, _, _, announcer := newApplicationFixture()
	req := validSubmission()
	req.SubjectID = "99"

	_, err := svc.Submit(context.Background(), req, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, announcer.subjects)
}

func TestApplicationServiceSubmitInvalidLevel(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	req := validSubmission()
	req.Level = "expert"

	_, err := svc.Submit(context.Background(), req, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceAssign(t *testing.T) {
	svc, repo, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	app, err := svc.Assign(context.Background(), submitted.ID, "t1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationScheduled, app.Status)
	require.NotNil(t, app.AssignedTeacherID)
	assert.Equal(t, "t1", *app.AssignedTeacherID)
	require.NotNil(t, app.LessonRoomID)
	assert.Equal(t, svc.LessonRoomID(submitted.ID), *app.LessonRoomID)

	stored := repo.apps[submitted.ID]
	assert.Equal(t, models.ApplicationScheduled, stored.Status)
}

func TestApplicationServiceLessonRoomIDDeterministic(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()

	first := svc.LessonRoomID("app-1")
	second := svc.LessonRoomID("app-1")
	other := svc.LessonRoomID("app-2")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Contains(t, first, "edumarket-")
}

func TestApplicationServiceAssignTwice(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), submitted.ID, "t1", nil)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), submitted.ID, "t1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceAssignSubjectMismatch(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	// t2 teaches Mathematics, the application asks for English.
	_, err = svc.Assign(context.Background(), submitted.ID, "t2", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceAssignInactiveTeacher(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), submitted.ID, "t3", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceAssignSelfOnly(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	actor := &models.JWTClaims{UserID: "t2", Role: models.RoleTeacher}
	_, err = svc.Assign(context.Background(), submitted.ID, "t1", actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceAssignNotFound(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()

	_, err := svc.Assign(context.Background(), "missing", "t1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceComplete(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), submitted.ID, "t1", nil)
	require.NoError(t, err)

	actor := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	app, err := svc.Complete(context.Background(), submitted.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationCompleted, app.Status)
}

func TestApplicationServiceCompleteWrongTeacher(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), submitted.ID, "t1", nil)
	require.NoError(t, err)

	actor := &models.JWTClaims{UserID: "t2", Role: models.RoleTeacher}
	_, err = svc.Complete(context.Background(), submitted.ID, actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceCompleteBeforeAssign(t *testing.T) {
	svc, _, _, _, _ := newApplicationFixture()
	submitted, err := svc.Submit(context.Background(), validSubmission(), nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), submitted.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceOpenForTeacher(t *testing.T) {
	svc, repo, teachers, _, _ := newApplicationFixture()
	repo.open = []models.StudentApplication{
		{ID: "a1", SubjectID: "1", Status: models.ApplicationNew},
		{ID: "a2", SubjectID: "7", Status: models.ApplicationNew},
	}

	apps, err := svc.OpenForTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	teachers.teachers["t4"] = &models.Teacher{ID: "t4", Active: true}
	apps, err = svc.OpenForTeacher(context.Background(), "t4")
	require.NoError(t, err)
	assert.Empty(t, apps)
}
