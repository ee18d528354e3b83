package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
)

type fakeRosterRepo struct {
	teachers      map[string]*models.Teacher
	bySubject     []models.Teacher
	subjectCalls  int
	deactivated   []string
	updated       []*models.Teacher
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{teachers: make(map[string]*models.Teacher)}
}

func (f *fakeRosterRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var out []models.Teacher
	for _, teacher := range f.teachers {
		out = append(out, *teacher)
	}
	return out, len(out), nil
}

func (f *fakeRosterRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.Teacher, error) {
	f.subjectCalls++
	return f.bySubject, nil
}

func (f *fakeRosterRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *teacher
	return &copied, nil
}

func (f *fakeRosterRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	f.updated = append(f.updated, teacher)
	copied := *teacher
	f.teachers[teacher.ID] = &copied
	return nil
}

func (f *fakeRosterRepo) Deactivate(ctx context.Context, id string) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

type fakeEligibleCache struct {
	entries     map[string][]byte
	invalidated int
}

func newFakeEligibleCache() *fakeEligibleCache {
	return &fakeEligibleCache{entries: make(map[string][]byte)}
}

func (f *fakeEligibleCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeEligibleCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeEligibleCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.invalidated++
	f.entries = make(map[string][]byte)
	return nil
}

func newRosterFixture() (*RosterService, *fakeRosterRepo, *fakeEligibleCache) {
	repo := newFakeRosterRepo()
	cache := newFakeEligibleCache()
	svc := NewRosterService(repo, cache, time.Minute, validator.New(), zap.NewNop())
	return svc, repo, cache
}

func TestRosterServiceEligibleOrderPreserved(t *testing.T) {
	svc, repo, _ := newRosterFixture()
	repo.bySubject = []models.Teacher{
		{ID: "t1", FullName: "First", Active: true},
		{ID: "t2", FullName: "Second", Active: true},
		{ID: "t3", FullName: "Third", Active: true},
	}

	teachers, err := svc.EligibleForSubject(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, teachers, 3)
	assert.Equal(t, "t1", teachers[0].ID)
	assert.Equal(t, "t2", teachers[1].ID)
	assert.Equal(t, "t3", teachers[2].ID)
}

func TestRosterServiceEligibleCaches(t *testing.T) {
	svc, repo, _ := newRosterFixture()
	repo.bySubject = []models.Teacher{{ID: "t1", Active: true}}

	_, err := svc.EligibleForSubject(context.Background(), "1")
	require.NoError(t, err)
	_, err = svc.EligibleForSubject(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.subjectCalls, "second lookup should be served from cache")
}

func TestRosterServiceEligibleRequiresSubject(t *testing.T) {
	svc, _, _ := newRosterFixture()

	_, err := svc.EligibleForSubject(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func validProfileUpdate() UpdateTeacherProfileRequest {
	return UpdateTeacherProfileRequest{
		FullName:     "Updated Name",
		SubjectIDs:   []string{"1"},
		PricePerHour: 2000,
	}
}

func TestRosterServiceUpdateProfile(t *testing.T) {
	svc, repo, cache := newRosterFixture()
	repo.teachers["t1"] = &models.Teacher{ID: "t1", FullName: "Old Name", Active: true}

	actor := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	teacher, err := svc.UpdateProfile(context.Background(), "t1", validProfileUpdate(), actor)
	require.NoError(t, err)

	assert.Equal(t, "Updated Name", teacher.FullName)
	assert.Equal(t, 2000.0, teacher.PricePerHour)
	assert.Len(t, repo.updated, 1)
	assert.Equal(t, 1, cache.invalidated)
}

func TestRosterServiceUpdateProfileForbidden(t *testing.T) {
	svc, repo, _ := newRosterFixture()
	repo.teachers["t1"] = &models.Teacher{ID: "t1", Active: true}

	actor := &models.JWTClaims{UserID: "t2", Role: models.RoleTeacher}
	_, err := svc.UpdateProfile(context.Background(), "t1", validProfileUpdate(), actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceUpdateProfileAdmin(t *testing.T) {
	svc, repo, _ := newRosterFixture()
	repo.teachers["t1"] = &models.Teacher{ID: "t1", Active: true}

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.UpdateProfile(context.Background(), "t1", validProfileUpdate(), actor)
	require.NoError(t, err)
}

func TestRosterServiceDeactivate(t *testing.T) {
	svc, repo, cache := newRosterFixture()
	repo.teachers["t1"] = &models.Teacher{ID: "t1", Active: true}

	require.NoError(t, svc.Deactivate(context.Background(), "t1"))
	assert.Equal(t, []string{"t1"}, repo.deactivated)
	assert.Equal(t, 1, cache.invalidated)

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
