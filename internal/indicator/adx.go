package indicator

import "math"

// ADXResult holds ADX and the directional indicators.
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// The first entry has no previous close and is NaN.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := nans(len(closes))
	for i := 1; i < len(closes); i++ {
		pc := closes[i-1]
		out[i] = math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-pc), math.Abs(lows[i]-pc)))
	}
	return out
}

// ADX calculates the Average Directional Index with simple-average smoothing
// of TR, +DM and -DM. Zero true range yields DI of 0 and a zero DI sum
// yields DX of 0.
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(closes)
	tr := TrueRange(highs, lows, closes)
	plusDM, minusDM := nans(n), nans(n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		plusDM[i], minusDM[i] = 0, 0
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	str := SMA(tr, period)
	spdm := SMA(plusDM, period)
	smdm := SMA(minusDM, period)

	res := ADXResult{PlusDI: nans(n), MinusDI: nans(n)}
	dx := nans(n)
	for i := 0; i < n; i++ {
		if !Valid(str[i]) || !Valid(spdm[i]) || !Valid(smdm[i]) {
			continue
		}
		var p, m float64
		if str[i] > 0 {
			p = spdm[i] / str[i] * 100
			m = smdm[i] / str[i] * 100
		}
		res.PlusDI[i], res.MinusDI[i] = p, m
		if p+m > 0 {
			dx[i] = math.Abs(p-m) / (p + m) * 100
		} else {
			dx[i] = 0
		}
	}
	res.ADX = SMA(dx, period)
	return res
}
