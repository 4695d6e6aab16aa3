package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Volatility reports return volatility, ATR% and recent price swings.
// A swing is the high/low range of the last n bars over the latest close.
// It carries no directional strength; the fuser reads its metrics.
type Volatility struct {
	Window    int
	ATRPeriod int
	Swings    []int
	// Ceiling is the ATR% above which volatility is flagged high.
	Ceiling float64
}

// NewVolatility returns a Volatility analyzer with 14-bar windows.
func NewVolatility() *Volatility {
	return &Volatility{Window: 14, ATRPeriod: 14, Swings: []int{1, 3, 7}, Ceiling: 5}
}

func (v *Volatility) Name() string { return NameVolatility }

func (v *Volatility) Analyze(_ context.Context, s *series.Series) (ContextReading, error) {
	need := v.Window
	if v.ATRPeriod > need {
		need = v.ATRPeriod
	}
	if err := s.Require(need + 1); err != nil {
		return ContextReading{}, err
	}

	closes := s.Closes()
	std, err := indicator.At(indicator.RollingStd(indicator.Returns(closes), v.Window), 0)
	if err != nil {
		return ContextReading{}, err
	}
	atrPct, err := indicator.ATRPercent(s.Highs(), s.Lows(), closes, v.ATRPeriod)
	if err != nil {
		return ContextReading{}, err
	}

	r := ContextReading{Metrics: map[string]float64{
		"volatility_pct": std * math.Sqrt(float64(v.Window)) * 100,
		"atr_pct":        atrPct,
	}}
	price := closes[len(closes)-1]
	for _, n := range v.Swings {
		hi, herr := indicator.At(indicator.RollingMax(s.Highs(), n), 0)
		lo, lerr := indicator.At(indicator.RollingMin(s.Lows(), n), 0)
		if herr == nil && lerr == nil && price > 0 {
			r.Metrics[fmt.Sprintf("swing_%d", n)] = (hi - lo) / price * 100
		}
	}

	switch {
	case atrPct > v.Ceiling:
		r.Label = "high"
		r.signal(fmt.Sprintf("High volatility (ATR %.2f%%)", atrPct))
	case atrPct < 1:
		r.Label = "low"
		r.signal("Low volatility")
	default:
		r.Label = "normal"
	}
	return r, nil
}
