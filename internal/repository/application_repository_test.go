package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarket/edumarket-api/internal/models"
)

func newApplicationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func applicationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "student_name", "email", "phone", "subject_id", "level", "goal", "preferred_date", "preferred_weekdays", "preferred_window", "timezone", "status", "assigned_teacher_id", "lesson_room_id", "created_at", "updated_at"}).
		AddRow("a1", "s1", "Alia", "alia@example.com", "+7", "1", "beginner", "", nil, "{mon,wed}", "evening", "local", "NEW", nil, nil, time.Now(), time.Now())
}

func TestApplicationRepositoryList(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+applicationColumns+" FROM student_applications WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(applicationRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_applications WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	apps, total, err := repo.List(context.Background(), models.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.ApplicationNew, apps[0].Status)
	assert.Equal(t, []string{"mon", "wed"}, []string(apps[0].PreferredWeekdays))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListStatusFilter(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT .* FROM student_applications WHERE 1=1 AND status = \\$1").
		WithArgs("NEW").
		WillReturnRows(applicationRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_applications WHERE 1=1 AND status = $1")).
		WithArgs("NEW").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.ApplicationNew
	_, _, err := repo.List(context.Background(), models.ApplicationFilter{Status: &status})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAssign(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("UPDATE student_applications SET status = \\$2, assigned_teacher_id = \\$3, lesson_room_id = \\$4").
		WithArgs("a1", "SCHEDULED", "t1", "room-1", sqlmock.AnyArg(), "NEW", "TEACHER_FOUND").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Assign(context.Background(), "a1", "t1", "room-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAssignAlreadyTaken(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("UPDATE student_applications SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Assign(context.Background(), "a1", "t1", "room-1")
	require.NoError(t, err)
	assert.False(t, ok, "zero affected rows must report a failed transition")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusGuard(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("UPDATE student_applications SET status = \\$2, updated_at = \\$3 WHERE id = \\$1 AND status = \\$4").
		WithArgs("a1", "COMPLETED", sqlmock.AnyArg(), "SCHEDULED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(context.Background(), "a1", models.ApplicationScheduled, models.ApplicationCompleted)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO student_applications").
		WillReturnResult(sqlmock.NewResult(1, 1))

	app := &models.StudentApplication{
		StudentID:   "s1",
		StudentName: "Alia",
		Email:       "alia@example.com",
		Phone:       "+7",
		SubjectID:   "1",
		Level:       models.LevelBeginner,
		Status:      models.ApplicationNew,
	}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.NotEmpty(t, app.ID, "an id is generated when absent")
	assert.False(t, app.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
