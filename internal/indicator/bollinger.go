package indicator

// BollingerResult holds the three bands.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger calculates Bollinger Bands: SMA(period) +/- k sample deviations.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	mid := SMA(closes, period)
	std := RollingStd(closes, period)

	res := BollingerResult{Upper: nans(len(closes)), Middle: mid, Lower: nans(len(closes))}
	for i := range closes {
		if !Valid(mid[i]) || !Valid(std[i]) {
			continue
		}
		res.Upper[i] = mid[i] + k*std[i]
		res.Lower[i] = mid[i] - k*std[i]
	}
	return res
}

// BollingerPosition returns where price sits inside the band, in percent
// (0 = lower band, 100 = upper band). A zero-width band yields 50.
func BollingerPosition(price, upper, lower float64) float64 {
	width := upper - lower
	if width <= 0 {
		return 50
	}
	return (price - lower) / width * 100
}
