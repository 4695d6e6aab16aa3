// Package risk turns an actionable decision into stop, target and position
// size recommendations.
package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Stop sources.
const (
	SourceATR        = "atr"
	SourceSupport    = "support"
	SourceResistance = "resistance"
)

// Multipliers are ATR multiples for stops and targets.
type Multipliers struct {
	Stop   Tiers `json:"stop"`
	Target Tiers `json:"target"`
}

// Tiers holds one value per aggressiveness tier, from cautious to bold.
type Tiers [3]float64

// Config parameterises the planner.
type Config struct {
	MinStopPercent     float64
	MaxPositionPercent float64
	LevelLookback      int
	Multipliers        map[core.RiskLevel]Multipliers
	Adjustments        map[core.RiskLevel]float64
}

// DefaultConfig returns the standard multiplier table.
func DefaultConfig() Config {
	return Config{
		MinStopPercent:     1,
		MaxPositionPercent: 100,
		LevelLookback:      50,
		Multipliers: map[core.RiskLevel]Multipliers{
			core.RiskLow:    {Stop: Tiers{1.5, 2, 3}, Target: Tiers{2, 3, 5}},
			core.RiskMedium: {Stop: Tiers{2, 3, 4}, Target: Tiers{2.5, 4, 6}},
			core.RiskHigh:   {Stop: Tiers{3, 4, 5}, Target: Tiers{3, 5, 8}},
		},
		Adjustments: map[core.RiskLevel]float64{
			core.RiskLow:    1,
			core.RiskMedium: 0.85,
			core.RiskHigh:   0.7,
		},
	}
}

// Stops are stop-loss prices.
type Stops struct {
	Tight  float64 `json:"tight"`
	Normal float64 `json:"normal"`
	Wide   float64 `json:"wide"`
}

// Targets are take-profit prices or their risk/reward ratios.
type Targets struct {
	Conservative float64 `json:"conservative"`
	Moderate     float64 `json:"moderate"`
	Aggressive   float64 `json:"aggressive"`
}

// Plan is the sizing recommendation for one decision.
type Plan struct {
	Direction           string         `json:"direction"`
	Entry               float64        `json:"entry"`
	RiskLevel           core.RiskLevel `json:"risk_level"`
	StopLoss            Stops          `json:"stop_loss"`
	TakeProfit          Targets        `json:"take_profit"`
	RiskReward          Targets        `json:"risk_reward"`
	StopSource          string         `json:"stop_source"`
	AdjustedRiskPercent float64        `json:"adjusted_risk_percent"`
	RiskAmount          float64        `json:"risk_amount"`
	StopDistancePercent float64        `json:"stop_distance_percent"`
	PositionSize        float64        `json:"position_size"`
	Units               float64        `json:"units"`
	Tips                []string       `json:"tips"`
}

// PlanInput carries everything Plan needs.
type PlanInput struct {
	Action      core.Action
	Entry       float64
	ATRPercent  float64
	RiskLevel   core.RiskLevel
	Balance     float64
	RiskPercent float64
	// Series supplies candidate support/resistance levels. Optional.
	Series *series.Series
}

// Planner computes plans. It holds no mutable state.
type Planner struct {
	cfg Config
}

// NewPlanner creates a planner.
func NewPlanner(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan sizes a position for a BUY or SELL decision.
func (p *Planner) Plan(in PlanInput) (*Plan, error) {
	var dir float64
	switch {
	case in.Action.IsBuy():
		dir = 1
	case in.Action.IsSell():
		dir = -1
	default:
		return nil, core.Errorf(core.ErrNotActionable, "action %s", in.Action)
	}
	if !(in.Entry > 0) || math.IsInf(in.Entry, 0) {
		return nil, core.Errorf(core.ErrInvalidInput, "entry price %g", in.Entry)
	}
	if !(in.Balance > 0) {
		return nil, core.Errorf(core.ErrInvalidInput, "balance %g", in.Balance)
	}
	if !(in.RiskPercent > 0 && in.RiskPercent <= 100) {
		return nil, core.Errorf(core.ErrInvalidInput, "risk percent %g outside (0,100]", in.RiskPercent)
	}
	if !(in.ATRPercent >= 0) || math.IsInf(in.ATRPercent, 0) {
		return nil, core.Errorf(core.ErrInvalidInput, "ATR percent %g", in.ATRPercent)
	}

	level := in.RiskLevel
	mult, ok := p.cfg.Multipliers[level]
	if !ok {
		level = core.RiskHigh
		mult = p.cfg.Multipliers[level]
	}

	offset := func(m float64) float64 { return in.Entry * in.ATRPercent * m / 100 }
	stops := Stops{
		Tight:  in.Entry - dir*offset(mult.Stop[0]),
		Normal: in.Entry - dir*offset(mult.Stop[1]),
		Wide:   in.Entry - dir*offset(mult.Stop[2]),
	}
	targets := Targets{
		Conservative: in.Entry + dir*offset(mult.Target[0]),
		Moderate:     in.Entry + dir*offset(mult.Target[1]),
		Aggressive:   in.Entry + dir*offset(mult.Target[2]),
	}

	source := SourceATR
	if in.Series != nil {
		if lvl, ok := p.levelStop(in.Series, in.Entry, dir, stops); ok {
			stops.Normal = lvl
			source = SourceSupport
			if dir < 0 {
				source = SourceResistance
			}
		}
	}

	stopDist := math.Max(math.Abs(in.Entry-stops.Normal)/in.Entry*100, p.cfg.MinStopPercent)
	adjusted := in.RiskPercent * p.adjustment(level)
	riskAmount := in.Balance * adjusted / 100
	position := riskAmount / (stopDist / 100)
	if limit := in.Balance * p.cfg.MaxPositionPercent / 100; p.cfg.MaxPositionPercent > 0 && position > limit {
		position = limit
	}

	rr := func(target float64) float64 {
		return dir * (target - in.Entry) / in.Entry * 100 / stopDist
	}

	plan := &Plan{
		Direction: "buy",
		Entry:     in.Entry,
		RiskLevel: level,
		StopLoss: Stops{
			Tight:  price(stops.Tight),
			Normal: price(stops.Normal),
			Wide:   price(stops.Wide),
		},
		TakeProfit: Targets{
			Conservative: price(targets.Conservative),
			Moderate:     price(targets.Moderate),
			Aggressive:   price(targets.Aggressive),
		},
		RiskReward: Targets{
			Conservative: ratio(rr(targets.Conservative)),
			Moderate:     ratio(rr(targets.Moderate)),
			Aggressive:   ratio(rr(targets.Aggressive)),
		},
		StopSource:          source,
		AdjustedRiskPercent: ratio(adjusted),
		RiskAmount:          ratio(riskAmount),
		StopDistancePercent: ratio(stopDist),
		PositionSize:        ratio(position),
		Units:               price(position / in.Entry),
	}
	if dir < 0 {
		plan.Direction = "sell"
	}
	plan.Tips = tips(plan)
	return plan, nil
}

func (p *Planner) adjustment(level core.RiskLevel) float64 {
	if adj, ok := p.cfg.Adjustments[level]; ok {
		return adj
	}
	return 1
}

// levelStop returns the nearest swing level strictly between the normal and
// wide stops. Buy candidates are lows below the previous bar's low; sell
// candidates are highs above the previous bar's high.
func (p *Planner) levelStop(s *series.Series, entry, dir float64, stops Stops) (float64, bool) {
	recent := s.Tail(p.cfg.LevelLookback)
	var candidates []float64
	for i := 1; i < recent.Len(); i++ {
		cur, prev := recent.Bar(i), recent.Bar(i-1)
		switch {
		case dir > 0 && cur.Low < prev.Low && cur.Low < entry:
			candidates = append(candidates, cur.Low)
		case dir < 0 && cur.High > prev.High && cur.High > entry:
			candidates = append(candidates, cur.High)
		}
	}
	sort.Float64s(candidates)
	if dir > 0 {
		sort.Sort(sort.Reverse(sort.Float64Slice(candidates)))
	}
	lo, hi := math.Min(stops.Normal, stops.Wide), math.Max(stops.Normal, stops.Wide)
	for _, c := range candidates {
		if c > lo && c < hi {
			return c, true
		}
	}
	return 0, false
}

func tips(p *Plan) []string {
	var out []string
	switch p.RiskLevel {
	case core.RiskHigh:
		out = append(out,
			"High-risk asset - consider reducing position size",
			"Use wider stops to accommodate volatility",
		)
	case core.RiskMedium:
		out = append(out, "Consider scaling in to reduce entry risk")
	default:
		out = append(out, "Consider trailing stops to maximize profit potential")
	}
	if p.StopDistancePercent < 2 {
		out = append(out, fmt.Sprintf("Tight stop (%.2f%%) - normal noise may trigger it", p.StopDistancePercent))
	}
	switch rr := p.RiskReward.Moderate; {
	case rr < 1.5:
		out = append(out, fmt.Sprintf("Low risk:reward ratio (%.2f) - consider finding better setup", rr))
	case rr > 3:
		out = append(out, fmt.Sprintf("Excellent risk:reward ratio (%.2f)", rr))
	}
	return out
}

func price(v float64) float64 {
	return decimal.NewFromFloat(v).Round(8).InexactFloat64()
}

func ratio(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
