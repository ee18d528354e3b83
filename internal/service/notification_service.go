package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/internal/notify"
	"github.com/edumarket/edumarket-api/pkg/config"
	"github.com/edumarket/edumarket-api/pkg/jobs"
)

type notificationSettingsRepository interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
}

const jobTypeSubmission = "submission_notification"

// NotificationService dispatches new-submission notifications through a
// background queue. Delivery is at-most-once: a failed attempt is logged and
// dropped, and the triggering lifecycle operation never observes the outcome.
type NotificationService struct {
	cfg      config.NotificationConfig
	settings notificationSettingsRepository
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService constructs the dispatcher. Start must be called
// before submissions are announced.
func NewNotificationService(cfg config.NotificationConfig, settings notificationSettingsRepository, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{cfg: cfg, settings: settings, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: 0,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Announce enqueues a notification without blocking the caller. Errors are
// swallowed after logging; submission handling must not depend on delivery.
func (s *NotificationService) Announce(subject string, fields map[string]string) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeSubmission,
		Payload: notify.Message{Subject: subject, Fields: fields},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification dropped", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(notify.Message)
	if !ok {
		s.logger.Warn("notification payload has unexpected type", zap.String("job_id", job.ID))
		return nil
	}

	notifier := s.resolveNotifier(ctx)
	if err := notifier.Notify(ctx, msg); err != nil {
		// Returning the error would trigger the queue's retry path; the
		// contract here is a single attempt.
		s.logger.Warn("notification delivery failed", zap.String("subject", msg.Subject), zap.Error(err))
		s.metrics.RecordNotification("failed")
		return nil
	}
	s.metrics.RecordNotification("delivered")
	return nil
}

// resolveNotifier picks the strategy from the persisted settings, falling
// back to static configuration when no settings row exists.
func (s *NotificationService) resolveNotifier(ctx context.Context) notify.Notifier {
	mode := models.NotificationMode(s.cfg.Mode)
	webhookURL := s.cfg.WebhookURL
	recipient := s.cfg.Recipient

	if s.settings != nil {
		settings, err := s.settings.Get(ctx)
		switch {
		case err == nil:
			if settings.NotifyMode != "" {
				mode = settings.NotifyMode
			}
			if settings.WebhookURL != "" {
				webhookURL = settings.WebhookURL
			}
			if settings.NotifyEmail != "" {
				recipient = settings.NotifyEmail
			}
		case errors.Is(err, sql.ErrNoRows):
			// no stored settings yet, config defaults apply
		default:
			s.logger.Warn("failed to load notification settings", zap.Error(err))
		}
	}

	switch mode {
	case models.NotifyWebhook:
		if webhookURL == "" {
			return notify.NopNotifier{}
		}
		return notify.NewWebhookNotifier(webhookURL, s.timeout())
	case models.NotifyMailto:
		if recipient == "" {
			return notify.NopNotifier{}
		}
		return notify.NewMailtoNotifier(recipient, s.logger)
	default:
		return notify.NopNotifier{}
	}
}

func (s *NotificationService) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return 10 * time.Second
}
