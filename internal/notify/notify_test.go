package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, time.Second)
	err := notifier.Notify(context.Background(), Message{
		Subject: "New tutoring application",
		Fields:  map[string]string{"student": "Alia", "subject_id": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "New tutoring application", received["_subject"])
	assert.Equal(t, "Alia", received["student"])
	assert.Equal(t, "1", received["subject_id"])
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, time.Second)
	err := notifier.Notify(context.Background(), Message{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestComposeURI(t *testing.T) {
	uri := ComposeURI("admin@edumarket.local", Message{
		Subject: "New tutoring application",
		Fields:  map[string]string{"student": "Alia N", "email": "alia@example.com"},
	})

	assert.True(t, strings.HasPrefix(uri, "mailto:admin@edumarket.local?"))
	assert.NotContains(t, uri, "+", "spaces must be percent-encoded, not plus-encoded")
	assert.Contains(t, uri, "%20")
	// sorted field order: email before student
	assert.Less(t, strings.Index(uri, "email"), strings.Index(uri, "student"))
}

func TestMailtoNotifierRequiresRecipient(t *testing.T) {
	notifier := NewMailtoNotifier("", nil)
	err := notifier.Notify(context.Background(), Message{Subject: "x"})
	require.Error(t, err)
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Notify(context.Background(), Message{Subject: "ignored"}))
}
