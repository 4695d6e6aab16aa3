package indicator

import talib "github.com/markcheno/go-talib"

// OBV calculates On-Balance Volume: cumulative volume signed by the
// close-to-close direction, starting from the first bar's volume.
func OBV(closes, volumes []float64) []float64 {
	if len(closes) == 0 || len(closes) != len(volumes) {
		return nans(len(closes))
	}
	return talib.Obv(closes, volumes)
}
