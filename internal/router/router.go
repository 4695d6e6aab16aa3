// Package router filters monitor results into notifier alerts.
package router

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/metrics"
	"github.com/newthinker/cryptosignal/internal/monitor"
	"github.com/newthinker/cryptosignal/internal/notifier"
)

// Config holds router configuration. MinConfidence is on the 0-100 scale.
type Config struct {
	MinConfidence    float64
	CooldownDuration time.Duration
	EnabledActions   []core.Action
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		MinConfidence:    60,
		CooldownDuration: 4 * time.Hour,
		EnabledActions:   []core.Action{core.ActionBuy, core.ActionSell, core.ActionStrongBuy, core.ActionStrongSell},
	}
}

// Router routes actionable decisions to notifiers with filtering. It
// implements monitor.Sink.
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	metrics   *metrics.Registry
	now       func() time.Time
	cooldowns map[string]time.Time // symbol/interval -> last alert time
	mu        sync.RWMutex
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records notification outcomes.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Router) { r.metrics = m }
}

// WithClock replaces time.Now for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a new router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Name() string { return "notify" }

// Publish routes the actionable reports of a batch as one notifier batch.
// Notifier failures are logged and counted; the error returned wraps
// ErrNotifierFailed only when every notifier failed.
func (r *Router) Publish(ctx context.Context, b monitor.Batch) error {
	var alerts []notifier.Alert
	for _, res := range b.Results {
		if !res.OK() || !res.Report.Actionable() {
			continue
		}
		a := notifier.FromReport(res.Report)
		if !r.admit(a) {
			r.logger.Debug("alert filtered out",
				zap.String("symbol", a.Symbol),
				zap.String("action", string(a.Action)),
				zap.Float64("confidence", a.Confidence),
			)
			continue
		}
		alerts = append(alerts, a)
	}
	if len(alerts) == 0 {
		return nil
	}
	return r.RouteBatch(ctx, alerts)
}

// Route sends one alert after filtering.
func (r *Router) Route(ctx context.Context, alert notifier.Alert) error {
	if !r.admit(alert) {
		return nil
	}
	return r.RouteBatch(ctx, []notifier.Alert{alert})
}

// RouteBatch sends already-admitted alerts to every notifier.
func (r *Router) RouteBatch(ctx context.Context, alerts []notifier.Alert) error {
	if r.registry == nil || r.registry.Len() == 0 {
		return nil
	}

	var errs map[string]error
	if len(alerts) == 1 {
		errs = r.registry.NotifyAll(ctx, alerts[0])
	} else {
		errs = r.registry.NotifyAllBatch(ctx, alerts)
	}

	for _, n := range r.registry.GetAll() {
		status := "ok"
		if err, failed := errs[n.Name()]; failed {
			status = "error"
			r.logger.Error("notifier failed",
				zap.String("notifier", n.Name()),
				zap.Error(err),
			)
		}
		r.metrics.RecordNotification(n.Name(), status)
	}

	r.logger.Info("alerts routed",
		zap.Int("alerts", len(alerts)),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errs)),
	)

	if len(errs) == r.registry.Len() {
		return core.Errorf(core.ErrNotifierFailed, "all %d notifiers failed", len(errs))
	}
	return nil
}

// admit applies the filters and, on success, starts the cooldown.
func (r *Router) admit(a notifier.Alert) bool {
	if a.Confidence < r.cfg.MinConfidence {
		return false
	}
	if len(r.cfg.EnabledActions) > 0 && !slices.Contains(r.cfg.EnabledActions, a.Action) {
		return false
	}

	key := cooldownKey(a.Symbol, a.Interval)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.cooldowns[key]; ok && now.Sub(last) < r.cfg.CooldownDuration {
		return false
	}
	r.cooldowns[key] = now
	return true
}

func cooldownKey(symbol, interval string) string {
	return symbol + "/" + interval
}

// ClearCooldown removes the cooldowns for a symbol across intervals.
func (r *Router) ClearCooldown(symbol string) {
	prefix := symbol + "/"
	r.mu.Lock()
	for k := range r.cooldowns {
		if strings.HasPrefix(k, prefix) {
			delete(r.cooldowns, k)
		}
	}
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.CooldownDuration * 2
	removed := 0

	for key, last := range r.cooldowns {
		if now.Sub(last) > expiry {
			delete(r.cooldowns, key)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine periodically drops expired cooldowns until ctx ends.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.CleanupExpiredCooldowns(); removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// Stats returns router statistics
func (r *Router) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_confidence":   r.cfg.MinConfidence,
		"cooldown_seconds": r.cfg.CooldownDuration.Seconds(),
		"enabled_actions":  r.cfg.EnabledActions,
	}
}
