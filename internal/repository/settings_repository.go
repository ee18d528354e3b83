package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edumarket/edumarket-api/internal/models"
)

// SettingsRepository manages the singleton platform settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings row. sql.ErrNoRows means none has been saved yet.
func (r *SettingsRepository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	const query = `SELECT id, notify_email, webhook_url, notify_mode, contact_email, contact_phone, updated_at FROM platform_settings WHERE id = 1`
	var settings models.PlatformSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save upserts the singleton row.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.PlatformSettings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO platform_settings (id, notify_email, webhook_url, notify_mode, contact_email, contact_phone, updated_at)
		VALUES (:id, :notify_email, :webhook_url, :notify_mode, :contact_email, :contact_phone, :updated_at)
		ON CONFLICT (id) DO UPDATE SET notify_email = EXCLUDED.notify_email, webhook_url = EXCLUDED.webhook_url, notify_mode = EXCLUDED.notify_mode, contact_email = EXCLUDED.contact_email, contact_phone = EXCLUDED.contact_phone, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
