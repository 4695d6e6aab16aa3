package indicator

// StochasticResult holds %K and %D.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic calculates the stochastic oscillator.
// A flat high/low range yields a neutral %K of 50.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochasticResult {
	hh := RollingMax(highs, kPeriod)
	ll := RollingMin(lows, kPeriod)

	k := nans(len(closes))
	for i := range closes {
		if !Valid(hh[i]) || !Valid(ll[i]) {
			continue
		}
		rng := hh[i] - ll[i]
		if rng == 0 {
			k[i] = 50
			continue
		}
		k[i] = (closes[i] - ll[i]) / rng * 100
	}
	return StochasticResult{K: k, D: SMA(k, dPeriod)}
}
