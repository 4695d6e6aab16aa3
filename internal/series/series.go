// Package series provides the immutable, validated OHLCV time series that
// every analysis stage consumes.
package series

import (
	"fmt"
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
)

// Series is a time-ascending sequence of bars for one symbol and interval.
// A Series is never mutated after construction; accessors return copies.
type Series struct {
	symbol   string
	interval string
	bars     []core.Bar
}

// New validates bars and returns a Series.
// Bars must be non-empty, finite, have non-negative volume, high >= low,
// and strictly ascending timestamps.
func New(symbol, interval string, bars []core.Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, core.Errorf(core.ErrNoData, "%s %s: empty series", symbol, interval)
	}

	owned := make([]core.Bar, len(bars))
	copy(owned, bars)

	for i, b := range owned {
		if !b.Finite() {
			return nil, core.Errorf(core.ErrMalformedData, "%s bar %d: non-finite field", symbol, i)
		}
		if b.Volume < 0 {
			return nil, core.Errorf(core.ErrMalformedData, "%s bar %d: negative volume %g", symbol, i, b.Volume)
		}
		if b.High < b.Low {
			return nil, core.Errorf(core.ErrMalformedData, "%s bar %d: high %g below low %g", symbol, i, b.High, b.Low)
		}
		if i > 0 && !b.Time.After(owned[i-1].Time) {
			return nil, core.Errorf(core.ErrMalformedData, "%s bar %d: timestamps not ascending", symbol, i)
		}
	}

	return &Series{symbol: symbol, interval: interval, bars: owned}, nil
}

// FromCloses builds a series from close prices only, with open = previous
// close, high/low bracketing open and close, and a constant volume.
// Bars are spaced one hour apart starting at start.
func FromCloses(symbol string, start time.Time, closes []float64, volume float64) (*Series, error) {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high, low := open, c
		if c > open {
			high, low = c, open
		}
		bars[i] = core.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  c,
			Volume: volume,
		}
	}
	return New(symbol, "1h", bars)
}

// Symbol returns the trading pair.
func (s *Series) Symbol() string { return s.symbol }

// Interval returns the bar interval, e.g. "1h".
func (s *Series) Interval() string { return s.interval }

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// Bar returns the bar at index i (0 is the oldest).
func (s *Series) Bar(i int) core.Bar { return s.bars[i] }

// Bars returns a copy of all bars.
func (s *Series) Bars() []core.Bar {
	out := make([]core.Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Require fails with ErrInsufficientHistory when fewer than n bars exist.
func (s *Series) Require(n int) error {
	if len(s.bars) < n {
		return core.Errorf(core.ErrInsufficientHistory, "%s: need %d bars, have %d", s.symbol, n, len(s.bars))
	}
	return nil
}

// Current returns the most recent bar.
func (s *Series) Current() (core.Bar, error) {
	return s.Back(0)
}

// Previous returns the bar before the most recent one.
func (s *Series) Previous() (core.Bar, error) {
	return s.Back(1)
}

// Back returns the bar n steps before the most recent one.
func (s *Series) Back(n int) (core.Bar, error) {
	if n < 0 {
		return core.Bar{}, core.Errorf(core.ErrInvalidInput, "negative offset %d", n)
	}
	if err := s.Require(n + 1); err != nil {
		return core.Bar{}, err
	}
	return s.bars[len(s.bars)-1-n], nil
}

// Tail returns a series of the last n bars (or all of them if shorter).
func (s *Series) Tail(n int) *Series {
	if n >= len(s.bars) {
		return s
	}
	if n < 1 {
		n = 1
	}
	return &Series{symbol: s.symbol, interval: s.interval, bars: s.bars[len(s.bars)-n:]}
}

// Slice returns the sub-series [from, to).
func (s *Series) Slice(from, to int) (*Series, error) {
	if from < 0 || to > len(s.bars) || from >= to {
		return nil, core.Errorf(core.ErrInvalidInput, "slice [%d:%d] of %d bars", from, to, len(s.bars))
	}
	return &Series{symbol: s.symbol, interval: s.interval, bars: s.bars[from:to]}, nil
}

// Opens returns a copy of the open prices.
func (s *Series) Opens() []float64 { return s.column(func(b core.Bar) float64 { return b.Open }) }

// Highs returns a copy of the high prices.
func (s *Series) Highs() []float64 { return s.column(func(b core.Bar) float64 { return b.High }) }

// Lows returns a copy of the low prices.
func (s *Series) Lows() []float64 { return s.column(func(b core.Bar) float64 { return b.Low }) }

// Closes returns a copy of the close prices.
func (s *Series) Closes() []float64 { return s.column(func(b core.Bar) float64 { return b.Close }) }

// Volumes returns a copy of the volumes.
func (s *Series) Volumes() []float64 { return s.column(func(b core.Bar) float64 { return b.Volume }) }

func (s *Series) column(pick func(core.Bar) float64) []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = pick(b)
	}
	return out
}

// String implements fmt.Stringer.
func (s *Series) String() string {
	return fmt.Sprintf("%s/%s[%d]", s.symbol, s.interval, len(s.bars))
}
