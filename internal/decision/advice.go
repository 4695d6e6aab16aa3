package decision

import (
	"fmt"

	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/core"
)

// advise turns a decision and its context into trader-facing suggestions.
func advise(d Decision, readings []analysis.ContextReading) []string {
	var out []string
	phase, _ := analysis.Find(readings, analysis.NameMarketPhase)
	levels, _ := analysis.Find(readings, analysis.NameSupportResistance)

	switch {
	case d.Action.IsBuy():
		switch {
		case d.Confidence > 70:
			out = append(out, fmt.Sprintf("Strong buy signal with %.1f%% confidence. Consider immediate entry.", d.Confidence))
		case d.Confidence > 50:
			out = append(out, fmt.Sprintf("Moderate buy signal with %.1f%% confidence. Look for entry on minor pullbacks.", d.Confidence))
		default:
			out = append(out, fmt.Sprintf("Weak buy signal with %.1f%% confidence. Consider scaling in gradually.", d.Confidence))
		}
		if phase.Label == analysis.PhaseUptrend {
			out = append(out, "Market is in an uptrend - trend-following strategy recommended.")
		}
		if sup, ok := levels.Metric("nearest_support"); ok {
			out = append(out, fmt.Sprintf("Consider waiting for retracement to support at %.8g for better entry.", sup))
		}
	case d.Action.IsSell():
		switch {
		case d.Confidence > 70:
			out = append(out, fmt.Sprintf("Strong sell signal with %.1f%% confidence. Consider immediate exit.", d.Confidence))
		case d.Confidence > 50:
			out = append(out, fmt.Sprintf("Moderate sell signal with %.1f%% confidence. Look to exit on strength.", d.Confidence))
		default:
			out = append(out, fmt.Sprintf("Weak sell signal with %.1f%% confidence. Consider reducing position size.", d.Confidence))
		}
		if phase.Label == analysis.PhaseDowntrend {
			out = append(out, "Market is in a downtrend - capital preservation should be priority.")
		}
		if res, ok := levels.Metric("nearest_resistance"); ok {
			out = append(out, fmt.Sprintf("Consider waiting for bounce to resistance at %.8g for better exit.", res))
		}
	default:
		out = append(out,
			fmt.Sprintf("Market signals are mixed with %.1f%% confidence. Hold current positions.", d.Confidence),
			"Wait for stronger signals before making new entries.",
		)
	}

	if d.RiskLevel == core.RiskHigh && d.Action != core.ActionHold {
		out = append(out, "High risk setup. Use smaller position sizes and tighter stops.")
	}
	return out
}
