package predict

import (
	"context"
	"math"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Momentum is a deterministic statistical predictor. It blends the balance
// of up and down closes over Window bars with the percentage change over
// Lookback bars.
type Momentum struct {
	Window   int
	Lookback int
	// Scale is the percentage move that saturates the momentum term.
	Scale float64
}

// NewMomentum returns a Momentum predictor with default parameters.
func NewMomentum() *Momentum {
	return &Momentum{Window: 20, Lookback: 10, Scale: 5}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Predict(_ context.Context, s *series.Series) (Prediction, error) {
	if err := s.Require(m.Lookback + 1); err != nil {
		return Prediction{}, err
	}

	closes := s.Closes()
	n := len(closes)
	start := n - m.Window
	if start < 1 {
		start = 1
	}

	var ups, downs int
	for i := start; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			ups++
		case closes[i] < closes[i-1]:
			downs++
		}
	}
	breadth := float64(ups-downs) / float64(n-start)

	var change float64
	if base := closes[n-1-m.Lookback]; base != 0 {
		change = (closes[n-1] - base) / base * 100
	}
	score := 0.5*breadth + 0.5*math.Tanh(change/m.Scale)

	probUp := 0.5 + score/2
	p := Prediction{Direction: core.DirectionDown, Confidence: (1 - probUp) * 100, Model: m.Name()}
	if probUp > 0.5 {
		p = Prediction{Direction: core.DirectionUp, Confidence: probUp * 100, Model: m.Name()}
	}
	return p.Validate()
}
