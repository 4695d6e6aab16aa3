// Package monitor owns the live-monitoring session: the tracked symbols, the
// refresh interval and the polling loop that turns each tick into a Batch
// for the registered sinks.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/metrics"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

// Evaluator produces a report for one request. *pipeline.Pipeline
// implements it.
type Evaluator interface {
	Analyze(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

// Item is one tracked symbol/interval pair.
type Item struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

func (i Item) key() string { return i.Symbol + "/" + i.Interval }

// Config parameterises a Monitor.
type Config struct {
	Interval       time.Duration
	MaxConcurrency int
	// Limit is the number of bars requested per symbol.
	Limit int
	// ResultBuffer sizes the Results channel.
	ResultBuffer int
}

// DefaultConfig returns the standard monitor settings.
func DefaultConfig() Config {
	return Config{Interval: time.Minute, MaxConcurrency: 4, Limit: 200, ResultBuffer: 16}
}

// Monitor is the scheduler. Its watchlist and interval may be changed while
// Run is active; each tick works on a snapshot taken at its start.
type Monitor struct {
	eval    Evaluator
	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu       sync.RWMutex
	items    []Item
	interval time.Duration
	limit    int
	maxConc  int
	sinks    []Sink
	running  bool
	cancel   context.CancelFunc

	flightMu sync.Mutex
	inFlight map[string]struct{}

	reset   chan struct{}
	results chan Batch
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records tick and analysis metrics.
func WithMetrics(reg *metrics.Registry) Option {
	return func(m *Monitor) { m.metrics = reg }
}

// WithClock sets the batch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New creates a monitor. An interval below core.MinRefreshInterval fails
// with ErrInvalidInterval.
func New(eval Evaluator, cfg Config, opts ...Option) (*Monitor, error) {
	if cfg.Interval < core.MinRefreshInterval {
		return nil, core.Errorf(core.ErrInvalidInterval, "%s below %s", cfg.Interval, core.MinRefreshInterval)
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.ResultBuffer < 0 {
		cfg.ResultBuffer = 0
	}

	m := &Monitor{
		eval:     eval,
		logger:   zap.NewNop(),
		now:      time.Now,
		interval: cfg.Interval,
		limit:    cfg.Limit,
		maxConc:  cfg.MaxConcurrency,
		inFlight: make(map[string]struct{}),
		reset:    make(chan struct{}, 1),
		results:  make(chan Batch, cfg.ResultBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Add tracks symbol at interval. The symbol is normalized first; adding a
// pair that is already tracked reports false.
func (m *Monitor) Add(symbol, interval string) (Item, bool, error) {
	item := Item{Symbol: collector.NormalizeSymbol(symbol, collector.DefaultQuote), Interval: interval}
	if err := collector.ValidateSymbol(item.Symbol); err != nil {
		return item, false, err
	}
	if err := collector.ValidateInterval(item.Interval); err != nil {
		return item, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing == item {
			return item, false, nil
		}
	}
	m.items = append(m.items, item)
	m.metrics.SetWatchlistSize(len(m.items))
	return item, true, nil
}

// Remove stops tracking symbol. An empty interval removes every interval
// tracked for the symbol. It reports whether anything was removed.
func (m *Monitor) Remove(symbol, interval string) bool {
	symbol = collector.NormalizeSymbol(symbol, collector.DefaultQuote)

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0:0]
	for _, item := range m.items {
		if item.Symbol == symbol && (interval == "" || item.Interval == interval) {
			continue
		}
		kept = append(kept, item)
	}
	removed := len(kept) != len(m.items)
	m.items = kept
	m.metrics.SetWatchlistSize(len(m.items))
	return removed
}

// Watchlist returns a copy of the tracked pairs in insertion order.
func (m *Monitor) Watchlist() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// SetInterval changes the refresh interval. A running loop restarts its
// ticker with the new period.
func (m *Monitor) SetInterval(d time.Duration) error {
	if d < core.MinRefreshInterval {
		return core.Errorf(core.ErrInvalidInterval, "%s below %s", d, core.MinRefreshInterval)
	}
	m.mu.Lock()
	m.interval = d
	m.mu.Unlock()

	select {
	case m.reset <- struct{}{}:
	default:
	}
	return nil
}

// Interval returns the refresh interval.
func (m *Monitor) Interval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval
}

// AddSink registers a batch consumer.
func (m *Monitor) AddSink(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Results returns a channel receiving every batch produced by Run. Sends
// never block: a batch is dropped when the buffer is full.
func (m *Monitor) Results() <-chan Batch {
	return m.results
}

// Running reports whether Run is active.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Tick analyzes a snapshot of the watchlist once. Symbols are evaluated
// concurrently up to MaxConcurrency; each failure is confined to its own
// Result. Results follow the snapshot order.
func (m *Monitor) Tick(ctx context.Context) Batch {
	m.mu.RLock()
	items := make([]Item, len(m.items))
	copy(items, m.items)
	limit, maxConc := m.limit, m.maxConc
	m.mu.RUnlock()

	batch := Batch{ID: uuid.New(), StartedAt: m.now(), Results: make([]Result, len(items))}

	var g errgroup.Group
	g.SetLimit(maxConc)
	for i, item := range items {
		g.Go(func() error {
			batch.Results[i] = m.analyze(ctx, item, limit)
			return nil
		})
	}
	_ = g.Wait()

	batch.FinishedAt = m.now()
	m.metrics.RecordTick(batch.FinishedAt.Sub(batch.StartedAt).Seconds())
	return batch
}

func (m *Monitor) analyze(ctx context.Context, item Item, limit int) Result {
	res := Result{Symbol: item.Symbol, Interval: item.Interval}

	if !m.acquire(item) {
		res.Err = core.Errorf(core.ErrInFlight, "%s", item.key())
		m.logger.Debug("skipping symbol still in flight", zap.String("symbol", item.Symbol))
		return res
	}
	defer m.release(item)

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	report, err := m.eval.Analyze(ctx, pipeline.Request{
		Symbol:   item.Symbol,
		Interval: item.Interval,
		Limit:    limit,
	})
	m.metrics.RecordAnalysis(item.Symbol, err == nil, time.Since(start).Seconds())
	if err != nil {
		m.logger.Warn("analysis failed",
			zap.String("symbol", item.Symbol),
			zap.String("interval", item.Interval),
			zap.Error(err),
		)
		res.Err = err
		return res
	}
	m.metrics.RecordDecision(string(report.Decision.Action))
	res.Report = report
	return res
}

func (m *Monitor) acquire(item Item) bool {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	if _, busy := m.inFlight[item.key()]; busy {
		return false
	}
	m.inFlight[item.key()] = struct{}{}
	return true
}

func (m *Monitor) release(item Item) {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	delete(m.inFlight, item.key())
}

// Run ticks immediately and then every interval until ctx is cancelled or
// Stop is called. Every batch goes to each sink and to Results.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	m.running = true
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	interval := m.interval
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
	}()

	m.logger.Info("monitor starting",
		zap.Int("watchlist_count", len(m.Watchlist())),
		zap.Duration("interval", interval),
	)

	m.publish(ctx, m.Tick(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return ctx.Err()
		case <-m.reset:
			interval = m.Interval()
			ticker.Reset(interval)
			m.logger.Info("refresh interval changed", zap.Duration("interval", interval))
		case <-ticker.C:
			m.publish(ctx, m.Tick(ctx))
		}
	}
}

// Refresh runs one tick outside the schedule and publishes it like a
// scheduled one.
func (m *Monitor) Refresh(ctx context.Context) Batch {
	b := m.Tick(ctx)
	m.publish(ctx, b)
	return b
}

// Stop ends a running loop. It is a no-op when the monitor is idle.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Monitor) publish(ctx context.Context, b Batch) {
	m.mu.RLock()
	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, b); err != nil {
			m.metrics.RecordSinkError(s.Name())
			m.logger.Error("sink publish failed",
				zap.String("sink", s.Name()),
				zap.String("batch", b.ID.String()),
				zap.Error(core.WrapError(core.ErrSinkFailed, err)),
			)
		}
	}

	select {
	case m.results <- b:
	default:
		m.logger.Warn("results subscriber is behind, dropping batch", zap.String("batch", b.ID.String()))
	}
}

// Stats summarises the session for status endpoints.
func (m *Monitor) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]any{
		"running":         m.running,
		"watchlist":       len(m.items),
		"interval":        m.interval.String(),
		"max_concurrency": m.maxConc,
		"sinks":           len(m.sinks),
	}
}
