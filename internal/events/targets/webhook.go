// Package targets provides event.Hook implementations.
package targets

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/piwi3910/nebulaio/internal/events"
	"github.com/piwi3910/nebulaio/internal/httputil"
)

// WebhookConfig configures a WebhookHook.
type WebhookConfig struct {
	// URL is the webhook endpoint.
	URL string

	// Secret, if set, signs the JSON body with HMAC-SHA256 and sends it
	// in the X-NebulaIO-Signature-256 header.
	Secret string

	// Timeout bounds a single delivery attempt. Defaults to 10s.
	Timeout time.Duration
}

// WebhookHook delivers event records to an HTTP endpoint as a POST of
// the JSON envelope.
type WebhookHook struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookHook creates a hook posting to cfg.URL.
func NewWebhookHook(cfg WebhookConfig) (*WebhookHook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	clientCfg := httputil.DefaultConfig()
	clientCfg.Timeout = cfg.Timeout

	return &WebhookHook{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: httputil.NewClient(clientCfg),
	}, nil
}

// Publish sends the event to the configured endpoint.
func (h *WebhookHook) Publish(ctx context.Context, event *events.S3Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NebulaIO-Emulator/1.0")

	if h.secret != "" {
		req.Header.Set("X-NebulaIO-Signature-256", signPayload(h.secret, body))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, respBody)
	}

	return nil
}

// Close releases the hook's idle HTTP connections.
func (h *WebhookHook) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var _ events.Hook = (*WebhookHook)(nil)
