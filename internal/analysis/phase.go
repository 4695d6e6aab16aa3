package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Market phase labels.
const (
	PhaseUptrend       = "uptrend"
	PhaseDowntrend     = "downtrend"
	PhaseRanging       = "ranging"
	PhaseChoppy        = "choppy"
	PhaseWeakUptrend   = "weak_uptrend"
	PhaseWeakDowntrend = "weak_downtrend"
)

// IsBullishPhase reports whether label is an up-trending phase.
func IsBullishPhase(label string) bool {
	return label == PhaseUptrend || label == PhaseWeakUptrend
}

// IsBearishPhase reports whether label is a down-trending phase.
func IsBearishPhase(label string) bool {
	return label == PhaseDowntrend || label == PhaseWeakDowntrend
}

// PhaseThresholds are the empirically chosen classification bounds.
type PhaseThresholds struct {
	RangeMaxPct      float64 `mapstructure:"range_max_pct" yaml:"range_max_pct" default:"8"`
	RangeMaxATRPct   float64 `mapstructure:"range_max_atr_pct" yaml:"range_max_atr_pct" default:"3"`
	ChoppyATRPct     float64 `mapstructure:"choppy_atr_pct" yaml:"choppy_atr_pct" default:"4"`
	ChoppySlopeRatio float64 `mapstructure:"choppy_slope_ratio" yaml:"choppy_slope_ratio" default:"2"`
	ChoppySlopeGap   float64 `mapstructure:"choppy_slope_gap" yaml:"choppy_slope_gap" default:"1"`
	HighATRPct       float64 `mapstructure:"high_atr_pct" yaml:"high_atr_pct" default:"5"`
}

// DefaultPhaseThresholds returns the standard thresholds.
func DefaultPhaseThresholds() PhaseThresholds {
	return PhaseThresholds{
		RangeMaxPct:      8,
		RangeMaxATRPct:   3,
		ChoppyATRPct:     4,
		ChoppySlopeRatio: 2,
		ChoppySlopeGap:   1,
		HighATRPct:       5,
	}
}

// Phase is the classified market state.
type Phase struct {
	Label      string  `json:"label"`
	Strength   float64 `json:"strength"`
	ShortSlope float64 `json:"short_slope"`
	LongSlope  float64 `json:"long_slope"`
	ATRPct     float64 `json:"atr_pct"`
	RangePct   float64 `json:"range_pct"`
}

// MarketPhase classifies the market and scores the resulting context:
// phase strength, proximity to support/resistance, the position inside the
// recent range and a damping factor for high volatility.
type MarketPhase struct {
	ShortSpan   int
	LongSpan    int
	ShortLag    int
	LongLag     int
	ATRPeriod   int
	RangeWindow int
	Thresholds  PhaseThresholds
	Levels      LevelConfig
}

// NewMarketPhase returns the analyzer over EMA 10/50.
func NewMarketPhase() *MarketPhase {
	return &MarketPhase{
		ShortSpan:   10,
		LongSpan:    50,
		ShortLag:    5,
		LongLag:     10,
		ATRPeriod:   14,
		RangeWindow: 20,
		Thresholds:  DefaultPhaseThresholds(),
		Levels:      DefaultLevelConfig(),
	}
}

func (m *MarketPhase) Name() string { return NameMarketPhase }

// Classify computes the phase for the latest bar.
func (m *MarketPhase) Classify(s *series.Series) (Phase, error) {
	if err := s.Require(m.LongSpan + 1); err != nil {
		return Phase{}, err
	}
	closes := s.Closes()

	shortEMA := indicator.EMA(closes, m.ShortSpan)
	longEMA := indicator.EMA(closes, m.LongSpan)
	short, err := indicator.At(shortEMA, 0)
	if err != nil {
		return Phase{}, err
	}
	long, err := indicator.At(longEMA, 0)
	if err != nil {
		return Phase{}, err
	}
	sSlope, err := indicator.At(indicator.PctChange(shortEMA, m.ShortLag), 0)
	if err != nil {
		return Phase{}, err
	}
	lSlope, err := indicator.At(indicator.PctChange(longEMA, m.LongLag), 0)
	if err != nil {
		return Phase{}, err
	}
	atrPct, err := indicator.ATRPercent(s.Highs(), s.Lows(), closes, m.ATRPeriod)
	if err != nil {
		return Phase{}, err
	}

	recent := s.Tail(m.RangeWindow)
	hh, _ := indicator.At(indicator.RollingMax(recent.Highs(), recent.Len()), 0)
	ll, _ := indicator.At(indicator.RollingMin(recent.Lows(), recent.Len()), 0)
	var rangePct float64
	if ll > 0 {
		rangePct = (hh - ll) / ll * 100
	}

	p := Phase{ShortSlope: sSlope, LongSlope: lSlope, ATRPct: atrPct, RangePct: rangePct}
	t := m.Thresholds
	switch {
	case short > long && sSlope > 0 && lSlope > 0:
		p.Label, p.Strength = PhaseUptrend, math.Min(70+sSlope*2, 100)
	case short < long && sSlope < 0 && lSlope < 0:
		p.Label, p.Strength = PhaseDowntrend, math.Min(70+math.Abs(sSlope)*2, 100)
	case rangePct < t.RangeMaxPct && atrPct < t.RangeMaxATRPct:
		p.Label, p.Strength = PhaseRanging, 60
	case math.Abs(sSlope) > t.ChoppySlopeRatio*math.Abs(lSlope) ||
		(math.Abs(sSlope-lSlope) > t.ChoppySlopeGap && atrPct > t.ChoppyATRPct):
		p.Label, p.Strength = PhaseChoppy, 50+math.Min(atrPct*5, 30)
	case short > long:
		p.Label, p.Strength = PhaseWeakUptrend, clamp(40+sSlope*5, 0, 100)
	default:
		p.Label, p.Strength = PhaseWeakDowntrend, clamp(40+math.Abs(sSlope)*5, 0, 100)
	}
	return p, nil
}

func (m *MarketPhase) Analyze(_ context.Context, s *series.Series) (ContextReading, error) {
	phase, err := m.Classify(s)
	if err != nil {
		return ContextReading{}, err
	}
	cur, _ := s.Current()
	price := cur.Close

	r := ContextReading{
		Label: phase.Label,
		Metrics: map[string]float64{
			"phase_strength": phase.Strength,
			"short_slope":    phase.ShortSlope,
			"long_slope":     phase.LongSlope,
			"atr_pct":        phase.ATRPct,
			"range_pct":      phase.RangePct,
		},
	}
	r.signal("Market phase: " + phase.Label)

	switch {
	case IsBullishPhase(phase.Label):
		r.BuyStrength += phase.Strength * 0.3
	case IsBearishPhase(phase.Label):
		r.SellStrength += phase.Strength * 0.3
	}

	levels := DetectLevels(s, m.Levels)
	if len(levels.Supports) > 0 {
		if score := proximityScore(levels.Supports[0]); score > 0 {
			r.BuyStrength += score
			r.signal(fmt.Sprintf("Price near support (%.2f%%)", levels.Supports[0].Distance))
		}
	}
	if len(levels.Resistances) > 0 {
		if score := proximityScore(levels.Resistances[0]); score > 0 {
			r.SellStrength += score
			r.signal(fmt.Sprintf("Price near resistance (%.2f%%)", levels.Resistances[0].Distance))
		}
	}

	recent := s.Tail(m.RangeWindow)
	hh, _ := indicator.At(indicator.RollingMax(recent.Highs(), recent.Len()), 0)
	ll, _ := indicator.At(indicator.RollingMin(recent.Lows(), recent.Len()), 0)
	position := 0.5
	if hh > ll {
		position = (price - ll) / (hh - ll)
	}
	r.Metrics["price_position"] = position
	switch {
	case position < 0.2:
		r.BuyStrength += 15
		r.signal("Price near recent low")
	case position > 0.8:
		r.SellStrength += 15
		r.signal("Price near recent high")
	}

	if phase.ATRPct > m.Thresholds.HighATRPct {
		r.BuyStrength *= 0.8
		r.SellStrength *= 0.8
		r.signal("High volatility dampens context")
	}
	return r, nil
}
