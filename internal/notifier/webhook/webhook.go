// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier. A zero timeout means 30s.
func New(url string, headers map[string]string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "webhook: url is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, alert notifier.Alert) error {
	return w.post(ctx, payload{Type: "decision", Alert: &alert})
}

func (w *Webhook) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return w.post(ctx, payload{Type: "batch", Count: len(alerts), Alerts: alerts})
}

// Notify posts a health message as {"type":"health","message":...}.
func (w *Webhook) Notify(ctx context.Context, msg string) error {
	return w.post(ctx, payload{Type: "health", Message: msg})
}

type payload struct {
	Type string `json:"type"`
	*notifier.Alert
	Message string           `json:"message,omitempty"`
	Count   int              `json:"count,omitempty"`
	Alerts  []notifier.Alert `json:"alerts,omitempty"`
}

func (w *Webhook) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return core.Errorf(core.ErrNotifierFailed, "webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.Errorf(core.ErrNotifierFailed, "webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
