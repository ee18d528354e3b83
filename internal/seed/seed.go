package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/internal/repository"
	"github.com/edumarket/edumarket-api/pkg/config"
)

// Catalog is the fixed subject list served by the portal.
var Catalog = []models.Subject{
	{ID: "1", Name: "English", Description: "Conversational and business", Icon: "globe"},
	{ID: "2", Name: "Mathematics", Description: "Algebra and geometry", Icon: "sigma"},
	{ID: "3", Name: "Physics", Description: "School curriculum", Icon: "atom"},
	{ID: "4", Name: "Chemistry", Description: "Organic chemistry", Icon: "flask"},
	{ID: "5", Name: "Biology", Description: "Anatomy and genetics", Icon: "leaf"},
	{ID: "6", Name: "Informatics", Description: "Programming", Icon: "laptop"},
	{ID: "7", Name: "IELTS", Description: "Exam preparation", Icon: "certificate"},
	{ID: "8", Name: "Music", Description: "Theory and vocals", Icon: "note"},
}

func demoTeachers(avatarTemplate string) []models.Teacher {
	return []models.Teacher{
		{
			ID:           "t1",
			FullName:     "Aigerim Bekova",
			PhotoURL:     fmt.Sprintf(avatarTemplate, "t1"),
			SubjectIDs:   []string{"1", "7"},
			Experience:   "8 years",
			Education:    "KazNU, Foreign Philology",
			PricePerHour: 1500,
			Bio:          "IELTS preparation and conversational English.",
			Active:       true,
		},
		{
			ID:           "t2",
			FullName:     "Daniyar Seitkali",
			PhotoURL:     fmt.Sprintf(avatarTemplate, "t2"),
			SubjectIDs:   []string{"2", "6"},
			Experience:   "5 years",
			Education:    "Nazarbayev University, Computer Science",
			PricePerHour: 1200,
			Bio:          "Olympiad mathematics and programming fundamentals.",
			Active:       true,
		},
	}
}

// Seeder provisions the subject catalog and optional demo data at startup.
type Seeder struct {
	subjects *repository.SubjectRepository
	teachers *repository.TeacherRepository
	users    *repository.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
}

// New constructs a Seeder.
func New(subjects *repository.SubjectRepository, teachers *repository.TeacherRepository, users *repository.UserRepository, cfg *config.Config, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{subjects: subjects, teachers: teachers, users: users, cfg: cfg, logger: logger}
}

// Run upserts the subject catalog, then seeds the admin account and the demo
// roster when enabled. The catalog is always synced since handlers depend on
// the fixed subject ids.
func (s *Seeder) Run(ctx context.Context) error {
	for i := range Catalog {
		if err := s.subjects.Upsert(ctx, &Catalog[i]); err != nil {
			return fmt.Errorf("seed subject %s: %w", Catalog[i].ID, err)
		}
	}

	if !s.cfg.Seed.Enabled {
		return nil
	}

	if err := s.seedAdmin(ctx); err != nil {
		return err
	}
	if err := s.seedRoster(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Seeder) seedAdmin(ctx context.Context) error {
	email := s.cfg.Seed.AdminEmail
	if email == "" || s.cfg.Seed.AdminPass == "" {
		s.logger.Warn("demo seeding enabled but admin credentials missing, skipping admin account")
		return nil
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("seed admin lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Seed.AdminPass), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}

	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Platform Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info("admin account seeded", zap.String("email", email))
	return nil
}

func (s *Seeder) seedRoster(ctx context.Context) error {
	for _, teacher := range demoTeachers(s.cfg.Roster.AvatarURLTemplate) {
		if _, err := s.teachers.FindByID(ctx, teacher.ID); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("seed roster lookup %s: %w", teacher.ID, err)
		}

		t := teacher
		if err := s.teachers.Create(ctx, &t); err != nil {
			return fmt.Errorf("seed roster %s: %w", teacher.ID, err)
		}
	}
	s.logger.Info("demo roster seeded")
	return nil
}
