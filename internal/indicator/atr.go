package indicator

// ATR calculates Average True Range as the simple mean of true range.
func ATR(highs, lows, closes []float64, period int) []float64 {
	return SMA(TrueRange(highs, lows, closes), period)
}

// ATRPercent returns the latest ATR as a percentage of the latest close.
func ATRPercent(highs, lows, closes []float64, period int) (float64, error) {
	atr, err := At(ATR(highs, lows, closes, period), 0)
	if err != nil {
		return 0, err
	}
	price, err := At(closes, 0)
	if err != nil || price == 0 {
		return 0, err
	}
	return atr / price * 100, nil
}
