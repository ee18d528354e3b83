// Package notify implements the outbound gateway for new-submission
// notifications. Delivery is best effort: callers never block on it and a
// failed attempt is only logged.
package notify

import "context"

// Message is a structured notification payload with a human-readable subject.
type Message struct {
	Subject string            `json:"subject"`
	Fields  map[string]string `json:"fields"`
}

// Notifier delivers a message via one concrete strategy.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NopNotifier discards every message. Used when notifications are disabled.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Message) error { return nil }
