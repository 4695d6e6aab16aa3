package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
	"github.com/newthinker/cryptosignal/internal/series/seriestest"
)

// triangle builds bars whose close zig-zags between 100 and 110 with a
// 20-bar period, bottoming at i%20 == 10.
func triangle(t *testing.T, n int) *series.Series {
	bars := make([]core.Bar, n)
	for i := range bars {
		d := float64(i%20) - 10
		if d < 0 {
			d = -d
		}
		c := 100 + d
		bars[i] = seriestest.Candle(i, c, c+1, c-1, c, 1000)
	}
	return seriestest.Bars(t, bars)
}

func TestMarketPhase_Classify(t *testing.T) {
	m := NewMarketPhase()

	up, err := m.Classify(seriestest.Linear(t, 80, 100, 1))
	require.NoError(t, err)
	assert.Equal(t, PhaseUptrend, up.Label)
	assert.True(t, IsBullishPhase(up.Label))
	assert.GreaterOrEqual(t, up.Strength, 70.0)

	down, err := m.Classify(seriestest.Linear(t, 80, 200, -1))
	require.NoError(t, err)
	assert.Equal(t, PhaseDowntrend, down.Label)
	assert.True(t, IsBearishPhase(down.Label))

	flat, err := m.Classify(seriestest.Flat(t, 60, 100))
	require.NoError(t, err)
	assert.Equal(t, PhaseRanging, flat.Label)
	assert.Equal(t, 60.0, flat.Strength)
}

func TestMarketPhase_Insufficient(t *testing.T) {
	_, err := NewMarketPhase().Classify(seriestest.Linear(t, 50, 100, 1))
	assert.True(t, errors.Is(err, core.ErrInsufficientHistory))
}

func TestMarketPhase_AnalyzeUptrend(t *testing.T) {
	m := NewMarketPhase()
	s := seriestest.Linear(t, 80, 100, 1)
	phase, err := m.Classify(s)
	require.NoError(t, err)

	r, err := m.Analyze(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, PhaseUptrend, r.Label)
	assert.InDelta(t, phase.Strength*0.3, r.BuyStrength, 1e-9)
	// The close sits at the top of its 20-bar range.
	assert.Equal(t, 15.0, r.SellStrength)
	pos, _ := r.Metric("price_position")
	assert.Equal(t, 1.0, pos)
}

func TestMarketPhase_AnalyzeFlat(t *testing.T) {
	r, err := NewMarketPhase().Analyze(context.Background(), seriestest.Flat(t, 60, 100))
	require.NoError(t, err)

	assert.Equal(t, PhaseRanging, r.Label)
	assert.Zero(t, r.BuyStrength)
	assert.Zero(t, r.SellStrength)
}

func TestDetectLevels(t *testing.T) {
	levels := DetectLevels(triangle(t, 56), DefaultLevelConfig())

	require.Len(t, levels.Supports, 1)
	require.Len(t, levels.Resistances, 1)

	sup := levels.Supports[0]
	assert.Equal(t, 99.0, sup.Price)
	assert.Equal(t, 3, sup.Tests)
	assert.InDelta(t, 600.0/105, sup.Distance, 1e-9)
	assert.InDelta(t, 49.714, sup.Strength, 0.01)

	res := levels.Resistances[0]
	assert.Equal(t, 111.0, res.Price)
	assert.Equal(t, 3, res.Tests)
}

func TestDetectLevels_Flat(t *testing.T) {
	levels := DetectLevels(seriestest.Flat(t, 60, 100), DefaultLevelConfig())
	assert.Empty(t, levels.Supports)
	assert.Empty(t, levels.Resistances)
}

func TestCluster(t *testing.T) {
	assert.Nil(t, cluster(nil, 1))
	assert.Equal(t, []float64{100.25, 105}, cluster([]float64{105, 100.5, 100}, 1))
	// Members chain against the previous one, not the first.
	assert.Equal(t, []float64{101}, cluster([]float64{100, 101, 102}, 1))
}

func TestSupportResistance_NearSupport(t *testing.T) {
	r, err := NewSupportResistance().Analyze(context.Background(), triangle(t, 51))
	require.NoError(t, err)

	assert.InDelta(t, 20.0, r.BuyStrength, 1e-9)
	assert.Zero(t, r.SellStrength)
	sup, ok := r.Metric("nearest_support")
	require.True(t, ok)
	assert.Equal(t, 99.0, sup)
}

func TestSupportResistance_PivotsAndFibonacci(t *testing.T) {
	bars := make([]core.Bar, 10)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = seriestest.Candle(i, c, c+1, c-1, c, 1000)
	}
	r, err := NewSupportResistance().Analyze(context.Background(), seriestest.Bars(t, bars))
	require.NoError(t, err)

	// prior bar: high 109, low 107, close 108
	want := map[string]float64{
		"pivot":    108,
		"pivot_r1": 109,
		"pivot_s1": 107,
		"pivot_r2": 110,
		"pivot_s2": 106,
		// swing 99..110
		"fib_236": 110 - 11*0.236,
		"fib_500": 104.5,
		"fib_618": 110 - 11*0.618,
	}
	for key, v := range want {
		got, ok := r.Metric(key)
		require.True(t, ok, key)
		assert.InDelta(t, v, got, 1e-9, key)
	}
	_, ok := r.Metric("fib_0")
	assert.False(t, ok)
}

func TestSupportResistance_FlatSkipsFibonacci(t *testing.T) {
	r, err := NewSupportResistance().Analyze(context.Background(), seriestest.Flat(t, 10, 100))
	require.NoError(t, err)
	pivot, _ := r.Metric("pivot")
	assert.Equal(t, 100.0, pivot)
	_, ok := r.Metric("fib_500")
	assert.False(t, ok)
}
