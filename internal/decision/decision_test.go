package decision

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/scoring"
)

var fixed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fuser(cfg Config) *Fuser {
	return NewFuser(cfg).WithClock(func() time.Time { return fixed })
}

func signal(buy, sell float64) scoring.AggregateSignal {
	return scoring.AggregateSignal{Symbol: "BTCUSDT", TotalBuy: buy, TotalSell: sell, Indicators: map[string]scoring.IndicatorReading{}}
}

func trend(strength float64) analysis.ContextReading {
	return analysis.ContextReading{Name: analysis.NameTrend, Metrics: map[string]float64{"strength": strength}}
}

func volume(ratio float64) analysis.ContextReading {
	return analysis.ContextReading{Name: analysis.NameVolume, Metrics: map[string]float64{"ratio": ratio}}
}

func volatility(atr float64) analysis.ContextReading {
	return analysis.ContextReading{Name: analysis.NameVolatility, Metrics: map[string]float64{"atr_pct": atr}}
}

func TestFuse_StrongBuy(t *testing.T) {
	d := fuser(BasicConfig()).Fuse(signal(60, 10), []analysis.ContextReading{
		trend(1), volume(2), volatility(1),
	})

	assert.Equal(t, core.ActionStrongBuy, d.Action)
	assert.InDelta(t, 75.0, d.Score, 1e-9)
	assert.InDelta(t, 75.0, d.Confidence, 1e-9)
	assert.Equal(t, core.RiskLow, d.RiskLevel)
	assert.Equal(t, []string{
		"Strong uptrend detected",
		"Indicators favour buyers (buy 60.0% / sell 10.0%)",
		"High volume confirming trend",
		"Overall: strong buy",
	}, d.Reasons)
	assert.Empty(t, d.Advice)
	assert.Equal(t, fixed, d.Timestamp)
}

func TestFuse_HighVolatilityPenalty(t *testing.T) {
	d := fuser(BasicConfig()).Fuse(signal(0, 40), []analysis.ContextReading{
		trend(-1), volume(1), volatility(7),
	})

	// -40 trend, -12 indicators, +10 volatility penalty against the sell.
	assert.InDelta(t, -42.0, d.Score, 1e-9)
	assert.Equal(t, core.ActionSell, d.Action)
	assert.Equal(t, core.RiskHigh, d.RiskLevel)
	assert.Equal(t, 1.0, d.Components.Volatility)
	assert.Contains(t, d.Reasons, "High volatility (ATR 7.00%) - reduced conviction")
}

func TestFuse_NoContext(t *testing.T) {
	d := fuser(BasicConfig()).Fuse(signal(20, 20), nil)

	assert.Equal(t, core.ActionHold, d.Action)
	assert.Zero(t, d.Score)
	assert.Equal(t, core.RiskHigh, d.RiskLevel)
	assert.Equal(t, []string{
		"Indicators balanced",
		"Overall: hold",
		"Low confidence signal - higher risk",
	}, d.Reasons)
}

func TestFuse_Extremes(t *testing.T) {
	sig := signal(10, 0)
	sig.Indicators[scoring.RSI] = scoring.IndicatorReading{Name: scoring.RSI, Value: 90}

	d := fuser(BasicConfig()).Fuse(sig, []analysis.ContextReading{volume(0.4)})

	n := len(d.Reasons)
	require.GreaterOrEqual(t, n, 4)
	assert.Equal(t, []string{
		"Low confidence signal - higher risk",
		"Low volume - consider waiting",
		"Extreme RSI - potential reversal",
	}, d.Reasons[n-3:])
	assert.Contains(t, d.Reasons, "Low volume - weak signals")
	// Volume does not vote without a trend.
	assert.Zero(t, d.Components.Volume)
}

func TestFuse_HighVolumeVote(t *testing.T) {
	tests := []struct {
		name      string
		trend     float64
		component float64
		score     float64
	}{
		{"uptrend", 1, 1, 60},
		{"downtrend", -1, -1, -60},
		{"no clear trend", 0.2, -1, -20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fuser(BasicConfig()).Fuse(signal(0, 0), []analysis.ContextReading{trend(tt.trend), volume(1.6)})
			assert.Equal(t, tt.component, d.Components.Volume)
			assert.InDelta(t, tt.score, d.Score, 1e-9)
			assert.Contains(t, d.Reasons, "High volume confirming trend")
		})
	}
}

func TestFuse_InsufficientRSIIgnored(t *testing.T) {
	sig := signal(0, 0)
	sig.Indicators[scoring.RSI] = scoring.IndicatorReading{Name: scoring.RSI, Insufficient: true}

	d := fuser(BasicConfig()).Fuse(sig, nil)
	assert.NotContains(t, d.Reasons, "Extreme RSI - potential reversal")
}

func TestClassify_Boundaries(t *testing.T) {
	f := fuser(BasicConfig())
	tests := []struct {
		score float64
		want  core.Action
	}{
		{60.0001, core.ActionStrongBuy},
		{60, core.ActionBuy},
		{30.0001, core.ActionBuy},
		{30, core.ActionHold},
		{0, core.ActionHold},
		{-30, core.ActionHold},
		{-30.0001, core.ActionSell},
		{-60, core.ActionSell},
		{-60.0001, core.ActionStrongSell},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.classify(tt.score), "score %v", tt.score)
	}
}

func TestFuse_Extended(t *testing.T) {
	readings := []analysis.ContextReading{
		trend(1),
		{Name: analysis.NameMarketPhase, Label: analysis.PhaseUptrend, BuyStrength: 30},
		{Name: analysis.NamePatterns, BuyStrength: 15},
		{Name: analysis.NamePrediction, Label: "UP", Metrics: map[string]float64{"confidence": 80}},
		{Name: analysis.NameSupportResistance, Metrics: map[string]float64{"nearest_support": 95}},
	}
	d := fuser(ExtendedConfig()).Fuse(signal(30, 30), readings)

	// 25 trend + 4.5 phase + 0.75 pattern + 12 model.
	assert.InDelta(t, 42.25, d.Score, 1e-9)
	assert.Equal(t, core.ActionBuy, d.Action)
	assert.InDelta(t, 63.375, d.Confidence, 1e-9)
	assert.Equal(t, []string{
		"Strong uptrend detected",
		"Indicators balanced",
		"Market phase: uptrend",
		"Bullish candlestick patterns",
		"Model predicts UP (80%)",
		"Overall: buy",
	}, d.Reasons)
	assert.Equal(t, []string{
		"Moderate buy signal with 63.4% confidence. Look for entry on minor pullbacks.",
		"Market is in an uptrend - trend-following strategy recommended.",
		"Consider waiting for retracement to support at 95 for better entry.",
	}, d.Advice)
}

func TestFuse_ExtendedHoldAdvice(t *testing.T) {
	d := fuser(ExtendedConfig()).Fuse(signal(0, 0), nil)
	assert.Equal(t, core.ActionHold, d.Action)
	require.Len(t, d.Advice, 2)
	assert.Equal(t, "Wait for stronger signals before making new entries.", d.Advice[1])
}

func TestFuse_Deterministic(t *testing.T) {
	f := fuser(ExtendedConfig())
	readings := []analysis.ContextReading{trend(0.7), volume(1.8), volatility(6)}
	a := f.Fuse(signal(45, 20), readings)
	b := f.Fuse(signal(45, 20), readings)
	assert.Equal(t, a, b)
}

func TestConfigByName(t *testing.T) {
	cfg, err := ConfigByName("")
	require.NoError(t, err)
	assert.Equal(t, Basic, cfg.Name)

	cfg, err = ConfigByName(Extended)
	require.NoError(t, err)
	assert.Equal(t, 45.0, cfg.Thresholds.StrongBuy)

	_, err = ConfigByName("fancy")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
