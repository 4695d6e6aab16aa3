package analysis

import (
	"context"
	"fmt"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/predict"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Prediction turns a predictor's direction call into a context reading,
// discounted by the model's historical accuracy.
type Prediction struct {
	Predictor predict.Predictor
	Accuracy  float64
}

// NewPrediction wraps p with the default accuracy of 0.6.
func NewPrediction(p predict.Predictor) *Prediction {
	return &Prediction{Predictor: p, Accuracy: 0.6}
}

func (a *Prediction) Name() string { return NamePrediction }

func (a *Prediction) Analyze(ctx context.Context, s *series.Series) (ContextReading, error) {
	raw, err := a.Predictor.Predict(ctx, s)
	if err != nil {
		return ContextReading{}, err
	}
	pred, err := raw.Validate()
	if err != nil {
		return ContextReading{}, err
	}

	r := ContextReading{
		Label:   string(pred.Direction),
		Metrics: map[string]float64{"confidence": pred.Confidence, "accuracy": a.Accuracy},
	}
	strength := pred.Confidence * a.Accuracy
	if pred.Direction == core.DirectionUp {
		r.BuyStrength = strength
	} else {
		r.SellStrength = strength
	}
	r.signal(fmt.Sprintf("%s predicts %s (%.1f%%)", pred.Model, pred.Direction, pred.Confidence))
	return r, nil
}
