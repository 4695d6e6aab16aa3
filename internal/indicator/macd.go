package indicator

// MACDResult holds the three MACD series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates the MACD line (EMA fast - EMA slow), its signal EMA and
// the histogram. The recursive EMAs are defined from the first bar, but the
// line is reported only once slow bars exist and the signal once a further
// signal-1 bars exist.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line := make([]float64, n)
	for i := range line {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(line, signal)

	res := MACDResult{MACD: nans(n), Signal: nans(n), Histogram: nans(n)}
	for i := slow - 1; i < n; i++ {
		if i < 0 {
			continue
		}
		res.MACD[i] = line[i]
		if i >= slow+signal-2 {
			res.Signal[i] = sig[i]
			res.Histogram[i] = line[i] - sig[i]
		}
	}
	return res
}
