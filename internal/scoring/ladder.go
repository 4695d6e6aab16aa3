package scoring

import "math"

// tier is one rung of a priority ladder: when ok, the indicator earns
// frac of its weight.
type tier struct {
	ok   bool
	frac float64
}

// ladder awards the first matching tier only. Lower tiers never add to a
// higher one.
func ladder(weight float64, tiers ...tier) float64 {
	for _, t := range tiers {
		if t.ok {
			return weight * t.frac
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func insufficient(name string, weight float64) IndicatorReading {
	return IndicatorReading{Name: name, Weight: weight, Insufficient: true}
}

func trendFlag(cur, prev float64) string {
	if cur > prev {
		return FlagUp
	}
	return FlagDown
}

func crossFlag(bull, bear bool, cur, prev float64) string {
	switch {
	case bull:
		return FlagBullishCross
	case bear:
		return FlagBearishCross
	default:
		return trendFlag(cur, prev)
	}
}
