package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	return NewWithBaseURL(botToken, chatID, defaultBaseURL)
}

// NewWithBaseURL creates a notifier against a custom Bot API endpoint.
func NewWithBaseURL(botToken, chatID, baseURL string) (*Telegram, error) {
	if botToken == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, alert notifier.Alert) error {
	return t.sendMessage(ctx, formatAlert(alert))
}

func (t *Telegram) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *%d Signals*\n\n", len(alerts)))

	for i, a := range alerts {
		sb.WriteString(formatAlert(a))
		if i < len(alerts)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(ctx, sb.String())
}

// Notify sends a plain-text health message. It is sent without Markdown
// parsing since rule and metric names contain underscores.
func (t *Telegram) Notify(ctx context.Context, msg string) error {
	return t.post(ctx, map[string]any{"chat_id": t.chatID, "text": "⚠️ " + msg})
}

func formatAlert(a notifier.Alert) string {
	var sb strings.Builder

	emoji := "⏸️"
	switch {
	case a.Action.IsBuy():
		emoji = "📈"
	case a.Action.IsSell():
		emoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* %s - %s\n", emoji, a.Symbol, a.Interval, a.Action))
	sb.WriteString(fmt.Sprintf("📊 Score: %.1f, confidence %.1f%%\n", a.Score, a.Confidence))
	sb.WriteString(fmt.Sprintf("⚠️ Risk: %s\n", a.RiskLevel))

	if a.Price > 0 {
		sb.WriteString(fmt.Sprintf("💰 Price: $%.2f\n", a.Price))
	}
	if a.StopLoss > 0 {
		sb.WriteString(fmt.Sprintf("🛑 Stop: $%.2f\n", a.StopLoss))
	}
	if a.TakeProfit > 0 {
		sb.WriteString(fmt.Sprintf("🎯 Target: $%.2f\n", a.TakeProfit))
	}
	for _, r := range a.Reasons {
		sb.WriteString(fmt.Sprintf("💡 %s\n", r))
	}

	sb.WriteString(fmt.Sprintf("⏰ Time: %s", a.GeneratedAt.UTC().Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	return t.post(ctx, map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
}

func (t *Telegram) post(ctx context.Context, payload map[string]any) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return core.Errorf(core.ErrNotifierFailed, "telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return core.Errorf(core.ErrNotifierFailed, "telegram: API error (status %d): %v", resp.StatusCode, result["description"])
	}

	return nil
}
