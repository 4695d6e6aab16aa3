package risk

import (
	"slices"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
)

var (
	lowRiskAssets    = []string{"BTC", "ETH"}
	mediumRiskAssets = []string{"BNB", "SOL", "ADA", "XRP", "DOT", "LINK", "MATIC", "AVAX"}
)

// Classify scores an asset's risk from its class and recent volatility.
// metrics are the volatility analyzer's metrics (volatility_pct, swing_3).
func Classify(symbol string, metrics map[string]float64) core.RiskLevel {
	base, _ := collector.ParseSymbol(symbol)
	score := 3
	switch {
	case slices.Contains(lowRiskAssets, base):
		score = 1
	case slices.Contains(mediumRiskAssets, base):
		score = 2
	}

	switch vol := metrics["volatility_pct"]; {
	case vol > 7:
		score += 2
	case vol > 4:
		score++
	}
	if metrics["swing_3"] > 15 {
		score++
	}

	switch {
	case score <= 1:
		return core.RiskLow
	case score <= 3:
		return core.RiskMedium
	default:
		return core.RiskHigh
	}
}
