package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/monitor"
)

// Notifier delivers a plain-text health message.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg string) error
}

// LogNotifier writes alerts to the logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs at warn level.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(_ context.Context, msg string) error {
	l.logger.Warn("health alert", zap.String("message", msg))
	return nil
}

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	rules     []Rule
	notifiers []Notifier
	metrics   map[string]float64
	cooldown  time.Duration
	logger    *zap.Logger

	// rule name -> first time the condition held
	pending map[string]time.Time
	// rule name -> last notification
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates a new alert evaluator. Rules are validated up front.
func NewEvaluator(rules []Rule, notifiers []Notifier, logger *zap.Logger) (*Evaluator, error) {
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		rules:     rules,
		notifiers: notifiers,
		metrics:   make(map[string]float64),
		cooldown:  5 * time.Minute,
		logger:    logger,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// SetMetrics updates the current metrics.
func (e *Evaluator) SetMetrics(metrics map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = metrics
}

// SetCooldown sets the cooldown duration between alerts.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// Evaluate evaluates a single rule and fires notification if triggered.
// Notifier failures are joined into the returned error.
func (e *Evaluator) Evaluate(ctx context.Context, rule Rule) error {
	e.mu.Lock()
	now := e.now()

	if !rule.Evaluate(e.metrics) {
		delete(e.pending, rule.Name)
		e.mu.Unlock()
		return nil
	}

	if rule.For > 0 {
		since, isPending := e.pending[rule.Name]
		if !isPending {
			e.pending[rule.Name] = now
			e.mu.Unlock()
			return nil
		}
		if now.Sub(since) < rule.For {
			e.mu.Unlock()
			return nil
		}
	}

	if last, fired := e.lastFired[rule.Name]; fired && now.Sub(last) < e.cooldown {
		e.mu.Unlock()
		return nil
	}

	msg := rule.FormatMessage(e.metrics)
	e.lastFired[rule.Name] = now
	delete(e.pending, rule.Name)
	notifiers := e.notifiers
	e.mu.Unlock()

	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			e.logger.Error("health notification failed", zap.String("notifier", n.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// EvaluateAll evaluates all rules.
func (e *Evaluator) EvaluateAll(ctx context.Context) error {
	var errs []error
	for _, rule := range e.rules {
		errs = append(errs, e.Evaluate(ctx, rule))
	}
	return errors.Join(errs...)
}

// Name implements monitor.Sink.
func (e *Evaluator) Name() string { return "health" }

// Publish derives the batch metrics and evaluates every rule against them.
func (e *Evaluator) Publish(ctx context.Context, b monitor.Batch) error {
	e.SetMetrics(BatchMetrics(b))
	return e.EvaluateAll(ctx)
}
