package models

import "time"

// NotificationMode selects how new-submission notifications are delivered.
type NotificationMode string

const (
	NotifyWebhook NotificationMode = "webhook"
	NotifyMailto  NotificationMode = "mailto"
	NotifyOff     NotificationMode = "off"
)

// PlatformSettings is the singleton configuration record editable by admins.
// Admin credentials live in the users table, not here.
type PlatformSettings struct {
	ID           int              `db:"id" json:"-"`
	NotifyEmail  string           `db:"notify_email" json:"notify_email"`
	WebhookURL   string           `db:"webhook_url" json:"webhook_url"`
	NotifyMode   NotificationMode `db:"notify_mode" json:"notify_mode"`
	ContactEmail string           `db:"contact_email" json:"contact_email"`
	ContactPhone string           `db:"contact_phone" json:"contact_phone"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}
