// Package decision fuses the aggregate indicator signal with the context
// readings into one action, confidence and risk level.
package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/scoring"
)

// Decision is the fused verdict for one series. It is never mutated after
// Fuse returns it.
type Decision struct {
	Action     core.Action    `json:"action"`
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	RiskLevel  core.RiskLevel `json:"risk_level"`
	Reasons    []string       `json:"reasons"`
	Advice     []string       `json:"advice,omitempty"`
	Components Components     `json:"components"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Components are the unweighted inputs to the score, each in [-1,1].
type Components struct {
	Trend      float64 `json:"trend"`
	Indicator  float64 `json:"indicator"`
	Volume     float64 `json:"volume"`
	Volatility float64 `json:"volatility"`
	Phase      float64 `json:"phase"`
	Pattern    float64 `json:"pattern"`
	ML         float64 `json:"ml"`
}

// Fuser applies one Config. It is safe for concurrent use.
type Fuser struct {
	cfg Config
	now func() time.Time
}

// NewFuser creates a fuser stamping decisions with the wall clock.
func NewFuser(cfg Config) *Fuser {
	return &Fuser{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of f using now for timestamps.
func (f *Fuser) WithClock(now func() time.Time) *Fuser {
	return &Fuser{cfg: f.cfg, now: now}
}

// Config returns the fusion configuration.
func (f *Fuser) Config() Config { return f.cfg }

// Fuse combines sig and the context readings. Missing readings contribute
// nothing.
func (f *Fuser) Fuse(sig scoring.AggregateSignal, readings []analysis.ContextReading) Decision {
	w := f.cfg.Weights
	var c Components
	var reasons []string
	var score float64

	trend, _ := analysis.Find(readings, analysis.NameTrend)
	strength := trend.Metrics["strength"]
	switch {
	case strength > 0.5:
		c.Trend = 1
		reasons = append(reasons, "Strong uptrend detected")
	case strength < -0.5:
		c.Trend = -1
		reasons = append(reasons, "Strong downtrend detected")
	}
	score += w.Trend * c.Trend

	c.Indicator = clamp(sig.Net()/100, -1, 1)
	switch {
	case sig.TotalBuy > sig.TotalSell:
		reasons = append(reasons, fmt.Sprintf("Indicators favour buyers (buy %.1f%% / sell %.1f%%)", sig.TotalBuy, sig.TotalSell))
	case sig.TotalSell > sig.TotalBuy:
		reasons = append(reasons, fmt.Sprintf("Indicators favour sellers (buy %.1f%% / sell %.1f%%)", sig.TotalBuy, sig.TotalSell))
	default:
		reasons = append(reasons, "Indicators balanced")
	}
	score += w.Indicator * c.Indicator

	ratio := 1.0
	if vol, ok := analysis.Find(readings, analysis.NameVolume); ok {
		if v, ok := vol.Metric("ratio"); ok {
			ratio = v
		}
	}
	switch {
	case ratio > 1.5:
		// heavy volume backs an uptrend and counts against anything else
		c.Volume = -1
		if c.Trend > 0 {
			c.Volume = 1
		}
		reasons = append(reasons, "High volume confirming trend")
	case ratio < 0.5:
		reasons = append(reasons, "Low volume - weak signals")
	}
	score += w.Volume * c.Volume

	var atrPct float64
	if v, ok := analysis.Find(readings, analysis.NameVolatility); ok {
		atrPct = v.Metrics["atr_pct"]
	}
	highVol := atrPct > f.cfg.VolatilityCeiling
	if highVol {
		c.Volatility = -sign(score)
		reasons = append(reasons, fmt.Sprintf("High volatility (ATR %.2f%%) - reduced conviction", atrPct))
	}
	score += w.Volatility * c.Volatility

	if w.Phase != 0 {
		if phase, ok := analysis.Find(readings, analysis.NameMarketPhase); ok {
			switch {
			case analysis.IsBullishPhase(phase.Label):
				c.Phase = phase.BuyStrength / 100
			case analysis.IsBearishPhase(phase.Label):
				c.Phase = -phase.SellStrength / 100
			}
			reasons = append(reasons, "Market phase: "+phase.Label)
		}
		score += w.Phase * c.Phase
	}
	if w.Pattern != 0 {
		if pat, ok := analysis.Find(readings, analysis.NamePatterns); ok {
			c.Pattern = clamp((pat.BuyStrength-pat.SellStrength)/100, -1, 1)
			switch {
			case c.Pattern > 0:
				reasons = append(reasons, "Bullish candlestick patterns")
			case c.Pattern < 0:
				reasons = append(reasons, "Bearish candlestick patterns")
			}
		}
		score += w.Pattern * c.Pattern
	}
	if w.ML != 0 {
		if pred, ok := analysis.Find(readings, analysis.NamePrediction); ok {
			conf := pred.Metrics["confidence"]
			if pred.Label == string(core.DirectionUp) {
				c.ML = conf / 100
			} else {
				c.ML = -conf / 100
			}
			reasons = append(reasons, fmt.Sprintf("Model predicts %s (%.0f%%)", pred.Label, conf))
		}
		score += w.ML * c.ML
	}

	action := f.classify(score)
	confidence := math.Min(math.Abs(score)*f.cfg.ConfidenceScale, 100)
	risk := defaultRisk(action)
	if highVol {
		risk = risk.Downgrade()
	}
	reasons = append(reasons, verdict(action))

	if confidence < 40 {
		reasons = append(reasons, "Low confidence signal - higher risk")
	}
	if ratio < 0.7 {
		reasons = append(reasons, "Low volume - consider waiting")
	}
	if rsi, ok := sig.Reading(scoring.RSI); ok && (rsi.Value > 85 || rsi.Value < 15) {
		reasons = append(reasons, "Extreme RSI - potential reversal")
	}

	d := Decision{
		Action:     action,
		Score:      score,
		Confidence: confidence,
		RiskLevel:  risk,
		Reasons:    reasons,
		Components: c,
		Timestamp:  f.now(),
	}
	if f.cfg.Advice {
		d.Advice = advise(d, readings)
	}
	return d
}

// classify maps a score to an action with strict comparisons.
func (f *Fuser) classify(score float64) core.Action {
	t := f.cfg.Thresholds
	switch {
	case score > t.StrongBuy:
		return core.ActionStrongBuy
	case score > t.Buy:
		return core.ActionBuy
	case score < -t.StrongSell:
		return core.ActionStrongSell
	case score < -t.Sell:
		return core.ActionSell
	default:
		return core.ActionHold
	}
}

func defaultRisk(a core.Action) core.RiskLevel {
	switch a {
	case core.ActionStrongBuy, core.ActionStrongSell:
		return core.RiskLow
	case core.ActionBuy, core.ActionSell:
		return core.RiskMedium
	default:
		return core.RiskHigh
	}
}

func verdict(a core.Action) string {
	switch a {
	case core.ActionStrongBuy:
		return "Overall: strong buy"
	case core.ActionBuy:
		return "Overall: buy"
	case core.ActionStrongSell:
		return "Overall: strong sell"
	case core.ActionSell:
		return "Overall: sell"
	default:
		return "Overall: hold"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
