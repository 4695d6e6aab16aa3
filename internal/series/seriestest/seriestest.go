// Package seriestest builds deterministic price series for tests.
package seriestest

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Start is the timestamp of the first generated bar.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Closes builds a series from close prices with a constant volume.
func Closes(t testing.TB, closes []float64, volume float64) *series.Series {
	t.Helper()
	s, err := series.FromCloses("BTCUSDT", Start, closes, volume)
	if err != nil {
		t.Fatalf("building series: %v", err)
	}
	return s
}

// Linear builds n bars whose close moves by step each bar.
func Linear(t testing.TB, n int, start, step float64) *series.Series {
	t.Helper()
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return Closes(t, closes, 1000)
}

// Flat builds n identical bars.
func Flat(t testing.TB, n int, price float64) *series.Series {
	t.Helper()
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = core.Bar{
			Time:   Start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}
	return Bars(t, bars)
}

// Wave builds n bars oscillating around base with the given amplitude and
// period in bars.
func Wave(t testing.TB, n int, base, amplitude, period float64) *series.Series {
	t.Helper()
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + amplitude*math.Sin(2*math.Pi*float64(i)/period)
	}
	return Closes(t, closes, 1000)
}

// Bars wraps raw bars into a series.
func Bars(t testing.TB, bars []core.Bar) *series.Series {
	t.Helper()
	s, err := series.New("BTCUSDT", "1h", bars)
	if err != nil {
		t.Fatalf("building series: %v", err)
	}
	return s
}

// Candle builds a bar at index i.
func Candle(i int, open, high, low, close, volume float64) core.Bar {
	return core.Bar{
		Time:   Start.Add(time.Duration(i) * time.Hour),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}
