// Package pipeline composes the analysis stages into a single report per
// symbol: fetch, score, analyze, fuse and size.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/decision"
	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/risk"
	"github.com/newthinker/cryptosignal/internal/scoring"
	"github.com/newthinker/cryptosignal/internal/series"
)

const atrPeriod = 14

// Account is the capital used for position sizing.
type Account struct {
	Balance     float64 `json:"balance"`
	RiskPercent float64 `json:"risk_percent"`
}

// DefaultAccount mirrors the configuration defaults.
func DefaultAccount() Account {
	return Account{Balance: 1000, RiskPercent: 2}
}

// Request asks for a fresh analysis of one symbol. Zero Balance or
// RiskPercent falls back to the pipeline's account.
type Request struct {
	Symbol      string
	Interval    string
	Limit       int
	Balance     float64
	RiskPercent float64
}

// Report is the full analysis output for one series.
type Report struct {
	Symbol      string                    `json:"symbol"`
	Interval    string                    `json:"interval"`
	Signal      scoring.AggregateSignal   `json:"signal"`
	Context     []analysis.ContextReading `json:"context"`
	Failures    map[string]string         `json:"failures,omitempty"`
	Decision    decision.Decision         `json:"decision"`
	AssetRisk   core.RiskLevel            `json:"asset_risk"`
	Plan        *risk.Plan                `json:"plan,omitempty"`
	Bars        int                       `json:"bars"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Actionable reports whether the decision is anything other than HOLD.
func (r *Report) Actionable() bool {
	return r.Decision.Action != core.ActionHold
}

// Pipeline runs the stages. All stages are stateless, so a Pipeline is safe
// for concurrent use.
type Pipeline struct {
	provider collector.Provider
	scorer   *scoring.Scorer
	engine   *analysis.Engine
	fuser    *decision.Fuser
	planner  *risk.Planner
	account  Account
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAccount sets the default sizing account.
func WithAccount(a Account) Option {
	return func(p *Pipeline) { p.account = a }
}

// WithPlanner replaces the default risk planner.
func WithPlanner(pl *risk.Planner) Option {
	return func(p *Pipeline) { p.planner = pl }
}

// WithClock sets the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline. provider may be nil when only Evaluate is used.
func New(provider collector.Provider, scorer *scoring.Scorer, engine *analysis.Engine, fuser *decision.Fuser, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider: provider,
		scorer:   scorer,
		engine:   engine,
		fuser:    fuser,
		planner:  risk.NewPlanner(risk.DefaultConfig()),
		account:  DefaultAccount(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Account returns the default sizing account.
func (p *Pipeline) Account() Account { return p.account }

// Analyze fetches the series for req and evaluates it.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Report, error) {
	if p.provider == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "pipeline has no market data provider")
	}
	symbol := collector.NormalizeSymbol(req.Symbol, collector.DefaultQuote)
	if err := collector.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := collector.ValidateInterval(req.Interval); err != nil {
		return nil, err
	}

	s, err := p.provider.FetchSeries(ctx, symbol, req.Interval, req.Limit)
	if err != nil {
		if !core.IsDataError(err) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = core.WrapError(core.ErrFetchFailed, err)
		}
		return nil, err
	}

	acct := p.account
	if req.Balance > 0 {
		acct.Balance = req.Balance
	}
	if req.RiskPercent > 0 {
		acct.RiskPercent = req.RiskPercent
	}
	return p.evaluate(ctx, s, acct)
}

// Evaluate runs every stage on s with the default account. Apart from the
// timestamp the result depends only on s.
func (p *Pipeline) Evaluate(ctx context.Context, s *series.Series) (*Report, error) {
	return p.evaluate(ctx, s, p.account)
}

func (p *Pipeline) evaluate(ctx context.Context, s *series.Series, acct Account) (*Report, error) {
	sig, err := p.scorer.Score(s)
	if err != nil {
		return nil, err
	}

	readings, failures := p.engine.Run(ctx, s)
	d := p.fuser.Fuse(sig, readings)

	report := &Report{
		Symbol:      s.Symbol(),
		Interval:    s.Interval(),
		Signal:      sig,
		Context:     readings,
		Decision:    d,
		Bars:        s.Len(),
		GeneratedAt: p.now(),
	}
	if len(failures) > 0 {
		report.Failures = make(map[string]string, len(failures))
		for name, ferr := range failures {
			report.Failures[name] = ferr.Error()
		}
	}

	var volMetrics map[string]float64
	if v, ok := analysis.Find(readings, analysis.NameVolatility); ok {
		volMetrics = v.Metrics
	}
	report.AssetRisk = risk.Classify(s.Symbol(), volMetrics)

	if report.Actionable() {
		report.Plan = p.plan(s, sig.CurrentPrice, d, report.AssetRisk, acct)
	}
	return report, nil
}

// plan sizes with the more conservative of the decision and asset risk. A
// sizing failure leaves the report without a plan.
func (p *Pipeline) plan(s *series.Series, entry float64, d decision.Decision, asset core.RiskLevel, acct Account) *risk.Plan {
	atrPct, err := indicator.ATRPercent(s.Highs(), s.Lows(), s.Closes(), atrPeriod)
	if err != nil {
		p.logger.Debug("ATR unavailable, sizing with minimum stop",
			zap.String("symbol", s.Symbol()),
			zap.Error(err),
		)
		atrPct = 0
	}

	plan, err := p.planner.Plan(risk.PlanInput{
		Action:      d.Action,
		Entry:       entry,
		ATRPercent:  atrPct,
		RiskLevel:   core.MoreConservative(d.RiskLevel, asset),
		Balance:     acct.Balance,
		RiskPercent: acct.RiskPercent,
		Series:      s,
	})
	if err != nil {
		p.logger.Warn("position sizing failed",
			zap.String("symbol", s.Symbol()),
			zap.Error(err),
		)
		return nil
	}
	return plan
}
