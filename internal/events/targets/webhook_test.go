package targets

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/piwi3910/nebulaio/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebhookHookRequiresURL(t *testing.T) {
	_, err := NewWebhookHook(WebhookConfig{})
	require.Error(t, err)
}

func TestWebhookHookPublish(t *testing.T) {
	var receivedBody []byte
	var receivedSignature string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody = make([]byte, r.ContentLength)
		_, _ = r.Body.Read(receivedBody)
		receivedSignature = r.Header.Get("X-NebulaIO-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook, err := NewWebhookHook(WebhookConfig{URL: server.URL, Secret: "shh"})
	require.NoError(t, err)
	defer func() { _ = hook.Close() }()

	event := events.NewS3Event(events.EventObjectCreatedPut, "test-bucket", "test-key", 5, "etag", "principal")
	require.NoError(t, hook.Publish(t.Context(), event))

	assert.Contains(t, string(receivedBody), "test-bucket")
	assert.NotEmpty(t, receivedSignature)
}

func TestWebhookHookPublishPropagatesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	hook, err := NewWebhookHook(WebhookConfig{URL: server.URL})
	require.NoError(t, err)
	defer func() { _ = hook.Close() }()

	event := events.NewS3Event(events.EventObjectRemovedDelete, "test-bucket", "test-key", 0, "", "principal")
	require.Error(t, hook.Publish(t.Context(), event))
}
