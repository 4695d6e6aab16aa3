// Package predict defines the opaque price-direction contributor and its
// built-in implementations.
package predict

import (
	"context"
	"fmt"
	"math"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Prediction is a model's call on the next move.
type Prediction struct {
	Direction  core.Direction `json:"direction"`
	Confidence float64        `json:"confidence"`
	Model      string         `json:"model"`
}

// Validate rejects unknown directions and clamps confidence into [0,100].
func (p Prediction) Validate() (Prediction, error) {
	if p.Direction != core.DirectionUp && p.Direction != core.DirectionDown {
		return Prediction{}, core.WrapError(core.ErrPredictFailed, fmt.Errorf("invalid direction %q", p.Direction))
	}
	if math.IsNaN(p.Confidence) {
		return Prediction{}, core.WrapError(core.ErrPredictFailed, fmt.Errorf("confidence is NaN"))
	}
	p.Confidence = math.Max(0, math.Min(100, p.Confidence))
	return p, nil
}

// Predictor produces a direction and confidence for the bar after the
// latest one in s.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, s *series.Series) (Prediction, error)
}
