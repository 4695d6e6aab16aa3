// Package notifier delivers actionable decisions to external channels.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

// Alert is the channel-neutral notification for one actionable decision.
type Alert struct {
	Symbol      string         `json:"symbol"`
	Interval    string         `json:"interval"`
	Action      core.Action    `json:"action"`
	Score       float64        `json:"score"`
	Confidence  float64        `json:"confidence"`
	RiskLevel   core.RiskLevel `json:"risk_level"`
	Price       float64        `json:"price"`
	StopLoss    float64        `json:"stop_loss,omitempty"`
	TakeProfit  float64        `json:"take_profit,omitempty"`
	Reasons     []string       `json:"reasons,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// FromReport builds an alert from a report. Stop and target come from the
// plan's normal stop and moderate target when a plan exists.
func FromReport(r *pipeline.Report) Alert {
	a := Alert{
		Symbol:      r.Symbol,
		Interval:    r.Interval,
		Action:      r.Decision.Action,
		Score:       r.Decision.Score,
		Confidence:  r.Decision.Confidence,
		RiskLevel:   r.Decision.RiskLevel,
		Price:       r.Signal.CurrentPrice,
		Reasons:     r.Decision.Reasons,
		GeneratedAt: r.GeneratedAt,
	}
	if r.Plan != nil {
		a.RiskLevel = r.Plan.RiskLevel
		a.StopLoss = r.Plan.StopLoss.Normal
		a.TakeProfit = r.Plan.TakeProfit.Moderate
	}
	return a
}

// Notifier defines the interface for decision notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send sends a single alert
	Send(ctx context.Context, alert Alert) error

	// SendBatch sends multiple alerts in one message where the channel allows
	SendBatch(ctx context.Context, alerts []Alert) error
}
