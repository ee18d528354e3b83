package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/pkg/config"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Save(ctx context.Context, settings *models.PlatformSettings) error
}

// UpdateSettingsRequest carries the editable platform settings.
type UpdateSettingsRequest struct {
	NotifyEmail  string `json:"notify_email" validate:"omitempty,email"`
	WebhookURL   string `json:"webhook_url" validate:"omitempty,url"`
	NotifyMode   string `json:"notify_mode" validate:"required,oneof=webhook mailto off"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,max=50"`
}

// SettingsService reads and writes the singleton platform settings row.
type SettingsService struct {
	repo      settingsStore
	defaults  config.NotificationConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsStore, defaults config.NotificationConfig, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, defaults: defaults, validator: validate, logger: logger}
}

// Get returns the current settings. Before the first save it returns the
// configured defaults so the admin panel always has something to render.
func (s *SettingsService) Get(ctx context.Context) (*models.PlatformSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.PlatformSettings{
				ID:          1,
				NotifyEmail: s.defaults.Recipient,
				WebhookURL:  s.defaults.WebhookURL,
				NotifyMode:  models.NotificationMode(s.defaults.Mode),
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update validates and upserts the settings singleton.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*models.PlatformSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	mode := models.NotificationMode(req.NotifyMode)
	if mode == models.NotifyWebhook && req.WebhookURL == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "webhook mode requires a webhook url")
	}
	if mode == models.NotifyMailto && req.NotifyEmail == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mailto mode requires a notify email")
	}

	settings := &models.PlatformSettings{
		NotifyEmail:  req.NotifyEmail,
		WebhookURL:   req.WebhookURL,
		NotifyMode:   mode,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}

	s.logger.Info("platform settings updated", zap.String("notify_mode", req.NotifyMode))
	return settings, nil
}
