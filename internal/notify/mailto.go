package notify

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// MailtoNotifier renders the message as a pre-filled mail-compose URI
// addressed to the configured recipient. The URI is recorded via the logger;
// the portal frontend opens it client-side.
type MailtoNotifier struct {
	recipient string
	logger    *zap.Logger
}

// NewMailtoNotifier builds a mailto notifier.
func NewMailtoNotifier(recipient string, logger *zap.Logger) *MailtoNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailtoNotifier{recipient: recipient, logger: logger}
}

// Notify implements Notifier.
func (n *MailtoNotifier) Notify(_ context.Context, msg Message) error {
	if n.recipient == "" {
		return fmt.Errorf("mailto notifier has no recipient")
	}
	uri := ComposeURI(n.recipient, msg)
	n.logger.Info("notification compose uri ready",
		zap.String("recipient", n.recipient),
		zap.String("uri", uri),
	)
	return nil
}

// ComposeURI builds a mailto URI with URL-encoded subject and body. Field
// lines are sorted for a stable body.
func ComposeURI(recipient string, msg Message) string {
	keys := make([]string, 0, len(msg.Fields))
	for k := range msg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var body strings.Builder
	for _, k := range keys {
		body.WriteString(k)
		body.WriteString(": ")
		body.WriteString(msg.Fields[k])
		body.WriteString("\n")
	}

	values := url.Values{}
	values.Set("subject", msg.Subject)
	values.Set("body", body.String())

	// url.Values encodes spaces as "+", mail clients expect %20.
	encoded := strings.ReplaceAll(values.Encode(), "+", "%20")
	return fmt.Sprintf("mailto:%s?%s", recipient, encoded)
}
