package analysis

import (
	"context"
	"fmt"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Trend labels.
const (
	TrendUp       = "up"
	TrendDown     = "down"
	TrendSideways = "sideways"
)

// Trend measures multi-horizon moving-average alignment.
type Trend struct {
	Periods        [3]int
	Weights        [3]float64
	AlignmentBonus float64
}

// NewTrend returns a Trend analyzer over SMA 10/20/50 with equal weights.
func NewTrend() *Trend {
	return &Trend{
		Periods:        [3]int{10, 20, 50},
		Weights:        [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		AlignmentBonus: 0.2,
	}
}

func (t *Trend) Name() string { return NameTrend }

// Analyze computes trend strength in [-1,1] as the weighted average of
// sign(price - MA). Horizons without enough history are left out and the
// remaining weights renormalised.
func (t *Trend) Analyze(_ context.Context, s *series.Series) (ContextReading, error) {
	closes := s.Closes()
	price, err := indicator.At(closes, 0)
	if err != nil {
		return ContextReading{}, err
	}

	r := ContextReading{Metrics: map[string]float64{}}
	var sum, total float64
	var mas []float64
	for i, p := range t.Periods {
		ma, err := indicator.At(indicator.SMA(closes, p), 0)
		if err != nil {
			continue
		}
		r.Metrics[fmt.Sprintf("sma_%d", p)] = ma
		sum += t.Weights[i] * sign(price-ma)
		total += t.Weights[i]
		mas = append(mas, ma)
	}
	if total == 0 {
		return ContextReading{}, core.Errorf(core.ErrInsufficientHistory, "trend needs %d bars, have %d", t.Periods[0], s.Len())
	}

	strength := sum / total
	if len(mas) == len(t.Periods) {
		stackedUp := mas[0] > mas[1] && mas[1] > mas[2]
		stackedDown := mas[0] < mas[1] && mas[1] < mas[2]
		switch {
		case strength == 1 && stackedUp:
			strength += t.AlignmentBonus
			r.signal("Moving averages aligned bullish")
		case strength == -1 && stackedDown:
			strength -= t.AlignmentBonus
			r.signal("Moving averages aligned bearish")
		}
	}
	strength = clamp(strength, -1, 1)

	switch {
	case strength > 0.5:
		r.Label = TrendUp
	case strength < -0.5:
		r.Label = TrendDown
	default:
		r.Label = TrendSideways
	}
	r.Metrics["strength"] = strength
	r.BuyStrength = clamp(strength, 0, 1) * 100
	r.SellStrength = clamp(-strength, 0, 1) * 100
	return r, nil
}
