// Package indicator implements technical indicators over float series.
//
// Every function returns series aligned to the input length. Entries that
// lack enough history are NaN; use At or Valid before consuming a value.
package indicator

import (
	"math"

	"github.com/newthinker/cryptosignal/internal/core"
)

// Valid reports whether v is a usable indicator value.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// At returns the value offset bars back from the end of xs.
// It fails with ErrInsufficientHistory for out-of-range or warm-up entries.
func At(xs []float64, offset int) (float64, error) {
	i := len(xs) - 1 - offset
	if offset < 0 || i < 0 {
		return math.NaN(), core.Errorf(core.ErrInsufficientHistory, "offset %d of %d values", offset, len(xs))
	}
	if !Valid(xs[i]) {
		return math.NaN(), core.Errorf(core.ErrInsufficientHistory, "value at offset %d not yet defined", offset)
	}
	return xs[i], nil
}

// Last returns the current and previous values of xs.
func Last(xs []float64) (cur, prev float64, err error) {
	if cur, err = At(xs, 0); err != nil {
		return cur, math.NaN(), err
	}
	prev, err = At(xs, 1)
	return cur, prev, err
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RollingMax returns the highest value of each period-long window.
func RollingMax(xs []float64, period int) []float64 {
	return rolling(xs, period, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Max(m, v)
		}
		return m
	})
}

// RollingMin returns the lowest value of each period-long window.
func RollingMin(xs []float64, period int) []float64 {
	return rolling(xs, period, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Min(m, v)
		}
		return m
	})
}

// RollingStd returns the sample standard deviation (n-1) of each window.
func RollingStd(xs []float64, period int) []float64 {
	if period < 2 {
		return nans(len(xs))
	}
	return rolling(xs, period, stdev)
}

func rolling(xs []float64, period int, fn func([]float64) float64) []float64 {
	out := nans(len(xs))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(xs); i++ {
		w := xs[i-period+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = fn(w)
	}
	return out
}

func hasNaN(w []float64) bool {
	for _, v := range w {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func stdev(w []float64) float64 {
	var mean float64
	for _, v := range w {
		mean += v
	}
	mean /= float64(len(w))

	var ss float64
	for _, v := range w {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(w)-1))
}

// PctChange returns the percentage change against the value lag bars back.
// A zero base yields NaN.
func PctChange(xs []float64, lag int) []float64 {
	out := nans(len(xs))
	for i := lag; i < len(xs); i++ {
		base := xs[i-lag]
		if base == 0 || math.IsNaN(base) || math.IsNaN(xs[i]) {
			continue
		}
		out[i] = (xs[i] - base) / base * 100
	}
	return out
}

// Returns returns fractional close-to-close returns; the first entry is NaN.
func Returns(xs []float64) []float64 {
	out := nans(len(xs))
	for i := 1; i < len(xs); i++ {
		if xs[i-1] != 0 {
			out[i] = xs[i]/xs[i-1] - 1
		}
	}
	return out
}

// CrossedAbove reports a strict upward cross of a over b between two bars.
func CrossedAbove(aPrev, bPrev, a, b float64) bool {
	return aPrev < bPrev && a > b
}

// CrossedBelow reports a strict downward cross of a under b between two bars.
func CrossedBelow(aPrev, bPrev, a, b float64) bool {
	return aPrev > bPrev && a < b
}
