package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/predict"
	"github.com/newthinker/cryptosignal/internal/series"
	"github.com/newthinker/cryptosignal/internal/series/seriestest"
)

type fixedPredictor struct {
	dir  core.Direction
	conf float64
	err  error
}

func (f fixedPredictor) Name() string { return "fixed" }

func (f fixedPredictor) Predict(context.Context, *series.Series) (predict.Prediction, error) {
	return predict.Prediction{Direction: f.dir, Confidence: f.conf, Model: "fixed"}, f.err
}

func TestPrediction_Up(t *testing.T) {
	r, err := NewPrediction(fixedPredictor{dir: core.DirectionUp, conf: 80}).
		Analyze(context.Background(), seriestest.Flat(t, 5, 100))
	require.NoError(t, err)

	assert.Equal(t, "UP", r.Label)
	assert.InDelta(t, 48.0, r.BuyStrength, 1e-9)
	assert.Zero(t, r.SellStrength)
}

func TestPrediction_DownClamped(t *testing.T) {
	r, err := NewPrediction(fixedPredictor{dir: core.DirectionDown, conf: 150}).
		Analyze(context.Background(), seriestest.Flat(t, 5, 100))
	require.NoError(t, err)

	assert.InDelta(t, 60.0, r.SellStrength, 1e-9)
	conf, _ := r.Metric("confidence")
	assert.Equal(t, 100.0, conf)
}

func TestPrediction_InvalidDirection(t *testing.T) {
	_, err := NewPrediction(fixedPredictor{dir: "SIDEWAYS", conf: 50}).
		Analyze(context.Background(), seriestest.Flat(t, 5, 100))
	assert.True(t, errors.Is(err, core.ErrPredictFailed))
}

func TestPrediction_ErrorPropagates(t *testing.T) {
	boom := errors.New("model offline")
	_, err := NewPrediction(fixedPredictor{err: boom}).
		Analyze(context.Background(), seriestest.Flat(t, 5, 100))
	assert.ErrorIs(t, err, boom)
}
