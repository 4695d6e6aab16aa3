package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Level is a clustered support or resistance price.
type Level struct {
	Price    float64 `json:"price"`
	Strength float64 `json:"strength"`
	Tests    int     `json:"tests"`
	// Distance is the absolute distance from the current price in percent.
	Distance float64 `json:"distance"`
}

// Levels holds support levels below and resistance levels above price,
// nearest first.
type Levels struct {
	Supports    []Level `json:"supports"`
	Resistances []Level `json:"resistances"`
}

// LevelConfig tunes level detection.
type LevelConfig struct {
	Lookback   int
	Window     int
	ClusterPct float64
	TestPct    float64
	MaxLevels  int
}

// DefaultLevelConfig returns the standard detection parameters.
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{Lookback: 100, Window: 5, ClusterPct: 1, TestPct: 0.5, MaxLevels: 3}
}

// DetectLevels finds strict local extrema over the last Lookback bars,
// clusters them and scores each cluster by proximity and test count.
func DetectLevels(s *series.Series, cfg LevelConfig) Levels {
	recent := s.Tail(cfg.Lookback)
	lows, highs := recent.Lows(), recent.Highs()
	price := recent.Bar(recent.Len() - 1).Close
	if price <= 0 {
		return Levels{}
	}

	var mins, maxs []float64
	for i := cfg.Window; i < len(lows)-cfg.Window; i++ {
		if strictExtreme(lows, i, cfg.Window, func(a, b float64) bool { return a < b }) {
			mins = append(mins, lows[i])
		}
		if strictExtreme(highs, i, cfg.Window, func(a, b float64) bool { return a > b }) {
			maxs = append(maxs, highs[i])
		}
	}

	threshold := price * cfg.ClusterPct / 100
	var out Levels
	for _, lvl := range cluster(mins, threshold) {
		if lvl < price {
			out.Supports = append(out.Supports, scoreLevel(lvl, price, lows, cfg.TestPct))
		}
	}
	for _, lvl := range cluster(maxs, threshold) {
		if lvl > price {
			out.Resistances = append(out.Resistances, scoreLevel(lvl, price, highs, cfg.TestPct))
		}
	}
	out.Supports = nearest(out.Supports, cfg.MaxLevels)
	out.Resistances = nearest(out.Resistances, cfg.MaxLevels)
	return out
}

func strictExtreme(xs []float64, i, w int, beats func(a, b float64) bool) bool {
	for j := i - w; j <= i+w; j++ {
		if j != i && !beats(xs[i], xs[j]) {
			return false
		}
	}
	return true
}

// cluster groups sorted prices whose gap to the previous member is within
// threshold and returns each group's mean.
func cluster(prices []float64, threshold float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var out []float64
	group := []float64{sorted[0]}
	flush := func() {
		var sum float64
		for _, p := range group {
			sum += p
		}
		out = append(out, sum/float64(len(group)))
	}
	for _, p := range sorted[1:] {
		if p-group[len(group)-1] <= threshold {
			group = append(group, p)
			continue
		}
		flush()
		group = []float64{p}
	}
	flush()
	return out
}

func scoreLevel(level, price float64, touches []float64, testPct float64) Level {
	dist := math.Abs(level-price) / price
	band := level * testPct / 100
	tests := 0
	for _, v := range touches {
		if math.Abs(v-level) <= band {
			tests++
		}
	}
	proximity := math.Max(0, 1-dist*10)
	testFactor := math.Min(float64(tests), 5) / 5
	return Level{
		Price:    level,
		Strength: (0.6*proximity + 0.4*testFactor) * 100,
		Tests:    tests,
		Distance: dist * 100,
	}
}

func nearest(levels []Level, max int) []Level {
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Distance < levels[j].Distance })
	if len(levels) > max {
		levels = levels[:max]
	}
	return levels
}

// proximityScore awards up to 30 points to a level within 3% of price.
func proximityScore(l Level) float64 {
	if l.Distance >= 3 {
		return 0
	}
	return 30 - l.Distance*10
}

// SupportResistance scores proximity to the nearest detected levels.
type SupportResistance struct {
	Config LevelConfig
}

// NewSupportResistance returns the analyzer with default detection parameters.
func NewSupportResistance() *SupportResistance {
	return &SupportResistance{Config: DefaultLevelConfig()}
}

func (a *SupportResistance) Name() string { return NameSupportResistance }

func (a *SupportResistance) Analyze(_ context.Context, s *series.Series) (ContextReading, error) {
	if err := s.Require(2); err != nil {
		return ContextReading{}, err
	}
	levels := DetectLevels(s, a.Config)
	r := ContextReading{Metrics: map[string]float64{
		"supports":    float64(len(levels.Supports)),
		"resistances": float64(len(levels.Resistances)),
	}}

	if len(levels.Supports) > 0 {
		sup := levels.Supports[0]
		r.Metrics["nearest_support"] = sup.Price
		r.Metrics["support_distance_pct"] = sup.Distance
		r.Metrics["support_strength"] = sup.Strength
		if score := proximityScore(sup); score > 0 {
			r.BuyStrength = score
			r.signal(fmt.Sprintf("Near support %.8g (%.2f%%)", sup.Price, sup.Distance))
		}
	}
	if len(levels.Resistances) > 0 {
		res := levels.Resistances[0]
		r.Metrics["nearest_resistance"] = res.Price
		r.Metrics["resistance_distance_pct"] = res.Distance
		r.Metrics["resistance_strength"] = res.Strength
		if score := proximityScore(res); score > 0 {
			r.SellStrength = score
			r.signal(fmt.Sprintf("Near resistance %.8g (%.2f%%)", res.Price, res.Distance))
		}
	}
	addPivotLevels(r.Metrics, s, a.Config.Lookback)
	return r, nil
}

// addPivotLevels adds the classic pivots of the prior bar and the
// Fibonacci retracements of the detection lookback.
func addPivotLevels(m map[string]float64, s *series.Series, lookback int) {
	prev := s.Bar(s.Len() - 2)
	pv := indicator.PivotPoints(prev.High, prev.Low, prev.Close)
	m["pivot"] = pv.P
	m["pivot_r1"], m["pivot_r2"] = pv.R1, pv.R2
	m["pivot_s1"], m["pivot_s2"] = pv.S1, pv.S2

	fib, err := indicator.FibonacciLevels(s.Highs(), s.Lows(), min(lookback, s.Len()))
	if err != nil || fib.High <= fib.Low {
		return
	}
	for _, l := range fib.Levels {
		if l.Ratio > 0 && l.Ratio < 1 {
			m[fmt.Sprintf("fib_%.0f", l.Ratio*1000)] = l.Price
		}
	}
}
