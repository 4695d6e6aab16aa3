// Package backtest replays the analysis pipeline over historical bars and
// turns its decisions into simulated long trades.
package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/metrics"
	"github.com/newthinker/cryptosignal/internal/pipeline"
	"github.com/newthinker/cryptosignal/internal/series"
)

// DefaultWindow is the number of bars each evaluation sees.
const DefaultWindow = 100

// Evaluator scores one window. *pipeline.Pipeline satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, s *series.Series) (*pipeline.Report, error)
}

// Backtester runs pipeline backtests against historical data
type Backtester struct {
	eval     Evaluator
	provider collector.Provider
	window   int
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// Option configures a Backtester.
type Option func(*Backtester)

// WithWindow sets the rolling window length. Values below 2 are ignored.
func WithWindow(n int) Option {
	return func(b *Backtester) {
		if n >= 2 {
			b.window = n
		}
	}
}

// WithProvider enables RunSymbol.
func WithProvider(p collector.Provider) Option {
	return func(b *Backtester) { b.provider = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(b *Backtester) { b.metrics = m }
}

// New creates a new Backtester
func New(eval Evaluator, opts ...Option) *Backtester {
	b := &Backtester{
		eval:   eval,
		window: DefaultWindow,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RunSymbol fetches limit bars and replays them.
func (b *Backtester) RunSymbol(ctx context.Context, symbol, interval string, limit int) (*Result, error) {
	if b.provider == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "backtest has no market data provider")
	}
	symbol = collector.NormalizeSymbol(symbol, collector.DefaultQuote)
	if err := collector.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := collector.ValidateInterval(interval); err != nil {
		return nil, err
	}
	s, err := b.provider.FetchSeries(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, s)
}

// Run evaluates every window ending at bar window-1 through the last bar.
// Windows the pipeline cannot evaluate are skipped and counted.
func (b *Backtester) Run(ctx context.Context, s *series.Series) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := metrics.ResultSuccess
		if err != nil {
			status = metrics.ResultFailure
		}
		b.metrics.RecordBacktest(status, time.Since(start).Seconds())
	}()

	if err := s.Require(b.window); err != nil {
		return nil, err
	}

	res = &Result{
		Symbol:    s.Symbol(),
		Interval:  s.Interval(),
		Window:    b.window,
		StartDate: s.Bar(b.window - 1).Time,
		EndDate:   s.Bar(s.Len() - 1).Time,
	}

	for end := b.window; end <= s.Len(); end++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window, err := s.Slice(end-b.window, end)
		if err != nil {
			return nil, err
		}
		report, err := b.eval.Evaluate(ctx, window)
		res.Evaluations++
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Skipped++
			b.logger.Debug("window skipped",
				zap.String("symbol", s.Symbol()),
				zap.Int("end", end),
				zap.Error(err),
			)
			continue
		}
		if !report.Actionable() {
			continue
		}

		bar := s.Bar(end - 1)
		res.Signals = append(res.Signals, Point{
			Time:       bar.Time,
			Price:      bar.Close,
			Action:     report.Decision.Action,
			Score:      report.Decision.Score,
			Confidence: report.Decision.Confidence,
		})
	}

	last := s.Bar(s.Len() - 1)
	res.Trades = signalsToTrades(res.Signals, Point{Time: last.Time, Price: last.Close, Action: core.ActionHold})
	res.Stats = CalculateStats(res.Trades)

	b.logger.Info("backtest complete",
		zap.String("symbol", res.Symbol),
		zap.String("interval", res.Interval),
		zap.Int("evaluations", res.Evaluations),
		zap.Int("signals", len(res.Signals)),
		zap.Int("trades", res.Stats.TotalTrades),
		zap.Float64("total_return", res.Stats.TotalReturn),
	)
	return res, nil
}

// signalsToTrades opens a long on a buy when flat and closes it on the
// next sell. A position still open at the end closes at last.
func signalsToTrades(signals []Point, last Point) []Trade {
	var trades []Trade
	var open *Trade

	for _, sig := range signals {
		switch {
		case sig.Action.IsBuy():
			if open == nil {
				open = &Trade{Entry: sig}
			}
		case sig.Action.IsSell():
			if open != nil {
				open.Exit = sig
				open.ExitReason = ExitSignal
				open.Return = tradeReturn(open.Entry.Price, sig.Price)
				trades = append(trades, *open)
				open = nil
			}
		}
	}

	if open != nil {
		open.Exit = last
		open.ExitReason = ExitEnd
		open.Return = tradeReturn(open.Entry.Price, last.Price)
		trades = append(trades, *open)
	}

	return trades
}
