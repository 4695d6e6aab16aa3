// Package analysis runs independent context analyzers over a price series.
package analysis

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/predict"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Analyzer names.
const (
	NameTrend             = "trend"
	NameVolume            = "volume"
	NameVolatility        = "volatility"
	NameMarketPhase       = "market_phase"
	NameSupportResistance = "support_resistance"
	NamePatterns          = "patterns"
	NamePrediction        = "prediction"
)

// ContextReading is one analyzer's scored opinion.
type ContextReading struct {
	Name         string             `json:"name"`
	Label        string             `json:"label,omitempty"`
	BuyStrength  float64            `json:"buy_strength"`
	SellStrength float64            `json:"sell_strength"`
	Signals      []string           `json:"signals,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Metric returns a metric value and whether it exists.
func (r ContextReading) Metric(key string) (float64, bool) {
	v, ok := r.Metrics[key]
	return v, ok
}

func (r *ContextReading) signal(s string) {
	r.Signals = append(r.Signals, s)
}

func (r *ContextReading) cap() {
	r.BuyStrength = clamp(r.BuyStrength, 0, 100)
	r.SellStrength = clamp(r.SellStrength, 0, 100)
}

// Analyzer produces a ContextReading from a series without side effects.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, s *series.Series) (ContextReading, error)
}

// Engine runs registered analyzers in registration order.
type Engine struct {
	mu        sync.RWMutex
	analyzers []Analyzer
	logger    *zap.Logger
}

// NewEngine creates an analyzer engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{logger: l}
}

// NewDefaultEngine registers every built-in analyzer. A nil predictor omits
// the prediction analyzer.
func NewDefaultEngine(predictor predict.Predictor, logger *zap.Logger) *Engine {
	e := NewEngine(logger)
	e.Register(NewTrend())
	e.Register(NewVolume())
	e.Register(NewVolatility())
	e.Register(NewMarketPhase())
	e.Register(NewSupportResistance())
	e.Register(NewPatterns())
	if predictor != nil {
		e.Register(NewPrediction(predictor))
	}
	return e
}

// Register adds an analyzer, replacing any with the same name in place.
func (e *Engine) Register(a Analyzer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.analyzers {
		if existing.Name() == a.Name() {
			e.analyzers[i] = a
			return
		}
	}
	e.analyzers = append(e.analyzers, a)
}

// Unregister removes an analyzer by name.
func (e *Engine) Unregister(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, a := range e.analyzers {
		if a.Name() == name {
			e.analyzers = append(e.analyzers[:i], e.analyzers[i+1:]...)
			return
		}
	}
}

// Get retrieves an analyzer by name
func (e *Engine) Get(name string) (Analyzer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, a := range e.analyzers {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Names returns the registered analyzer names in order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.analyzers))
	for i, a := range e.analyzers {
		names[i] = a.Name()
	}
	return names
}

// Run executes every analyzer. A failing analyzer is logged and reported in
// the error map; the others still run.
func (e *Engine) Run(ctx context.Context, s *series.Series) ([]ContextReading, map[string]error) {
	e.mu.RLock()
	analyzers := make([]Analyzer, len(e.analyzers))
	copy(analyzers, e.analyzers)
	e.mu.RUnlock()

	readings := make([]ContextReading, 0, len(analyzers))
	var failures map[string]error

	for _, a := range analyzers {
		r, err := a.Analyze(ctx, s)
		if err != nil {
			e.logger.Warn("context analyzer failed",
				zap.String("analyzer", a.Name()),
				zap.String("symbol", s.Symbol()),
				zap.Error(err),
			)
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[a.Name()] = core.WrapError(core.ErrAnalyzerFailed, err)
			continue
		}
		r.Name = a.Name()
		r.cap()
		readings = append(readings, r)
	}
	return readings, failures
}

// Find returns the reading with the given name.
func Find(readings []ContextReading, name string) (ContextReading, bool) {
	for _, r := range readings {
		if r.Name == name {
			return r, true
		}
	}
	return ContextReading{}, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
