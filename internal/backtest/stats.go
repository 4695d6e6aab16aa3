package backtest

import (
	"math"
)

// CalculateStats computes performance statistics from trades
func CalculateStats(trades []Trade) Stats {
	if len(trades) == 0 {
		return Stats{}
	}

	var winning, losing int
	var sum float64
	returns := make([]float64, 0, len(trades))
	equity := 1.0

	for _, t := range trades {
		returns = append(returns, t.Return)
		sum += t.Return
		equity *= 1 + t.Return
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	n := float64(len(trades))
	return Stats{
		TotalTrades:   len(trades),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       float64(winning) / n * 100,
		TotalReturn:   (equity - 1) * 100,
		AverageReturn: sum / n * 100,
		MaxDrawdown:   calculateMaxDrawdown(returns) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// compounded equity curve, starting from 1.
func calculateMaxDrawdown(returns []float64) float64 {
	var maxDD float64
	peak := 1.0
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (peak - cumulative) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// calculateSharpeRatio is mean over sample standard deviation with a zero
// risk-free rate.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}
