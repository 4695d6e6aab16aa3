package indicator

import "math"

// SMA calculates Simple Moving Average.
// The first period-1 entries are NaN; windows containing NaN yield NaN.
func SMA(prices []float64, period int) []float64 {
	out := nans(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	var sum float64
	valid := 0
	for i, p := range prices {
		if math.IsNaN(p) {
			valid = 0
			sum = 0
			continue
		}
		sum += p
		valid++
		if valid > period {
			sum -= prices[i-period]
			valid = period
		}
		if valid == period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA calculates Exponential Moving Average in recursive form:
// ema = alpha*price + (1-alpha)*ema, alpha = 2/(span+1), seeded by the first
// defined value rather than by an SMA.
func EMA(prices []float64, span int) []float64 {
	out := nans(len(prices))
	if span <= 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	ema := math.NaN()
	for i, p := range prices {
		if math.IsNaN(p) {
			continue
		}
		if math.IsNaN(ema) {
			ema = p
		} else {
			ema = alpha*p + (1-alpha)*ema
		}
		out[i] = ema
	}
	return out
}
