package indicator

import (
	"github.com/newthinker/cryptosignal/internal/core"
)

// FibonacciRatios are the standard retracement ratios.
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// FibLevel is one retracement price.
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// Fibonacci holds retracement levels measured down from the swing high.
type Fibonacci struct {
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Levels []FibLevel `json:"levels"`
}

// FibonacciLevels computes retracements over the last lookback bars.
func FibonacciLevels(highs, lows []float64, lookback int) (Fibonacci, error) {
	if lookback <= 0 || len(highs) < lookback || len(lows) < lookback {
		return Fibonacci{}, core.Errorf(core.ErrInsufficientHistory, "fibonacci needs %d bars, have %d", lookback, len(highs))
	}

	hh, err := At(RollingMax(highs, lookback), 0)
	if err != nil {
		return Fibonacci{}, err
	}
	ll, err := At(RollingMin(lows, lookback), 0)
	if err != nil {
		return Fibonacci{}, err
	}

	fib := Fibonacci{High: hh, Low: ll, Levels: make([]FibLevel, len(FibonacciRatios))}
	for i, r := range FibonacciRatios {
		fib.Levels[i] = FibLevel{Ratio: r, Price: hh - (hh-ll)*r}
	}
	return fib, nil
}
