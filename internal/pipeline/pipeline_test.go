package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/decision"
	"github.com/newthinker/cryptosignal/internal/predict"
	"github.com/newthinker/cryptosignal/internal/scoring"
	"github.com/newthinker/cryptosignal/internal/series"
	"github.com/newthinker/cryptosignal/internal/series/seriestest"
)

var fixed = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubProvider struct {
	s   *series.Series
	err error

	symbol string
	limit  int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchSeries(_ context.Context, symbol, _ string, limit int) (*series.Series, error) {
	p.symbol, p.limit = symbol, limit
	return p.s, p.err
}

func newPipeline(provider *stubProvider, cfg decision.Config) *Pipeline {
	engine := analysis.NewDefaultEngine(predict.NewMomentum(), nil)
	fuser := decision.NewFuser(cfg).WithClock(func() time.Time { return fixed })
	clock := WithClock(func() time.Time { return fixed })
	if provider == nil {
		// a typed nil would not compare equal to a nil interface
		return New(nil, scoring.New(scoring.ProfileCrypto), engine, fuser, clock)
	}
	return New(provider, scoring.New(scoring.ProfileCrypto), engine, fuser, clock)
}

func TestEvaluate_Uptrend(t *testing.T) {
	for _, cfg := range []decision.Config{decision.BasicConfig(), decision.ExtendedConfig()} {
		t.Run(cfg.Name, func(t *testing.T) {
			s := seriestest.Linear(t, 100, 100, 1)
			report, err := newPipeline(nil, cfg).Evaluate(context.Background(), s)
			require.NoError(t, err)

			assert.Contains(t, []core.Action{core.ActionBuy, core.ActionStrongBuy}, report.Decision.Action)
			assert.Empty(t, report.Failures)
			assert.Equal(t, 100, report.Bars)
			assert.Equal(t, fixed, report.GeneratedAt)

			rsi, ok := report.Signal.Reading(scoring.RSI)
			require.True(t, ok)
			assert.Greater(t, rsi.Value, 90.0)

			phase, ok := analysis.Find(report.Context, analysis.NameMarketPhase)
			require.True(t, ok)
			assert.Equal(t, analysis.PhaseUptrend, phase.Label)

			require.NotNil(t, report.Plan)
			assert.Equal(t, 199.0, report.Plan.Entry)
			assert.Less(t, report.Plan.StopLoss.Normal, 199.0)
			assert.Equal(t, core.MoreConservative(report.Decision.RiskLevel, report.AssetRisk), report.Plan.RiskLevel)
		})
	}
}

func TestEvaluate_FlatHolds(t *testing.T) {
	for _, cfg := range []decision.Config{decision.BasicConfig(), decision.ExtendedConfig()} {
		t.Run(cfg.Name, func(t *testing.T) {
			report, err := newPipeline(nil, cfg).Evaluate(context.Background(), seriestest.Flat(t, 100, 50))
			require.NoError(t, err)
			assert.Equal(t, core.ActionHold, report.Decision.Action)
			assert.Nil(t, report.Plan)
			assert.False(t, report.Actionable())
		})
	}
}

func TestEvaluate_TwoBars(t *testing.T) {
	report, err := newPipeline(nil, decision.ExtendedConfig()).Evaluate(context.Background(), seriestest.Linear(t, 2, 100, 1))
	require.NoError(t, err)

	rsi := report.Signal.Indicators[scoring.RSI]
	assert.True(t, rsi.Insufficient)
	assert.NotEmpty(t, report.Failures)
	assert.Equal(t, core.ActionHold, report.Decision.Action)
	assert.Equal(t, core.RiskLow, report.AssetRisk)
}

func TestEvaluate_SingleBar(t *testing.T) {
	_, err := newPipeline(nil, decision.BasicConfig()).Evaluate(context.Background(), seriestest.Flat(t, 1, 50))
	assert.True(t, errors.Is(err, core.ErrInsufficientHistory))
}

func TestEvaluate_Deterministic(t *testing.T) {
	p := newPipeline(nil, decision.ExtendedConfig())
	s := seriestest.Wave(t, 120, 100, 8, 24)

	a, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)
	b, err := p.Evaluate(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, a.Signal, b.Signal)
	assert.Equal(t, a.Decision, b.Decision)
	assert.Equal(t, a.Plan, b.Plan)
}

func TestAnalyze(t *testing.T) {
	provider := &stubProvider{s: seriestest.Linear(t, 100, 100, 1)}
	p := newPipeline(provider, decision.BasicConfig())

	base, err := p.Analyze(context.Background(), Request{Symbol: "btc", Interval: "1h", Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", provider.symbol)
	assert.Equal(t, 100, provider.limit)
	require.NotNil(t, base.Plan)

	bigger, err := p.Analyze(context.Background(), Request{Symbol: "BTC-USDT", Interval: "1h", Limit: 100, Balance: 10000})
	require.NoError(t, err)
	require.NotNil(t, bigger.Plan)
	assert.Greater(t, bigger.Plan.RiskAmount, base.Plan.RiskAmount)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		req      Request
		want     *core.Error
	}{
		{"invalid symbol", &stubProvider{}, Request{Symbol: "B!", Interval: "1h"}, core.ErrInvalidInput},
		{"invalid interval", &stubProvider{}, Request{Symbol: "BTCUSDT", Interval: "7m"}, core.ErrInvalidInput},
		{"data error passes through", &stubProvider{err: core.ErrSymbolNotFound}, Request{Symbol: "NOPEUSDT", Interval: "1h"}, core.ErrSymbolNotFound},
		{"other errors become fetch failures", &stubProvider{err: errors.New("tls handshake")}, Request{Symbol: "BTCUSDT", Interval: "1h"}, core.ErrFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPipeline(tt.provider, decision.BasicConfig()).Analyze(context.Background(), tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAnalyze_NoProvider(t *testing.T) {
	_, err := newPipeline(nil, decision.BasicConfig()).Analyze(context.Background(), Request{Symbol: "BTCUSDT", Interval: "1h"})
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}
