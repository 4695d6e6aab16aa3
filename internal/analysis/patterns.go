package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Pattern biases.
const (
	BiasBullish = "bullish"
	BiasBearish = "bearish"
	BiasNeutral = "neutral"
)

// Pattern is one detected candlestick formation.
type Pattern struct {
	Type     string  `json:"type"`
	Index    int     `json:"index"`
	Strength float64 `json:"strength"`
	Bias     string  `json:"bias"`
}

// PatternConfig holds the candle shape tolerances.
type PatternConfig struct {
	DojiBody     float64
	HammerBody   float64
	HammerShadow float64
	StarMiddle   float64
	// StarOuter is the minimum third/first body ratio of a star.
	StarOuter float64
	// MinBody is the smallest body that counts in two- and three-bar patterns.
	MinBody float64
	Recent  int
}

// DefaultPatternConfig returns the standard tolerances.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		DojiBody:     0.05,
		HammerBody:   0.3,
		HammerShadow: 2,
		StarMiddle:   0.1,
		StarOuter:    0.5,
		MinBody:      0.001,
		Recent:       3,
	}
}

// DetectPatterns scans the most recent bars for candlestick formations.
func DetectPatterns(s *series.Series, cfg PatternConfig) []Pattern {
	n := s.Len()
	var out []Pattern
	for i := max(0, n-cfg.Recent); i < n; i++ {
		b := s.Bar(i)
		if b.Range() <= 0 {
			continue
		}
		if p, ok := doji(b, i, cfg); ok {
			out = append(out, p)
		}
		if p, ok := hammer(b, i, cfg); ok {
			out = append(out, p)
		}
		if i >= 1 {
			if p, ok := engulfing(s.Bar(i-1), b, i, cfg); ok {
				out = append(out, p)
			}
		}
		if i >= 2 {
			if p, ok := star(s.Bar(i-2), s.Bar(i-1), b, i, cfg); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

func doji(b core.Bar, i int, cfg PatternConfig) (Pattern, bool) {
	ratio := b.Body() / b.Range()
	if ratio > cfg.DojiBody {
		return Pattern{}, false
	}
	return Pattern{Type: "doji", Index: i, Strength: 1 - ratio, Bias: BiasNeutral}, true
}

// hammer reports hammers and inverted hammers, both read as bullish.
func hammer(b core.Bar, i int, cfg PatternConfig) (Pattern, bool) {
	body := b.Body()
	if body == 0 || body/b.Range() > cfg.HammerBody {
		return Pattern{}, false
	}
	upper := b.High - math.Max(b.Open, b.Close)
	lower := math.Min(b.Open, b.Close) - b.Low

	switch {
	case lower >= cfg.HammerShadow*body && upper < 0.5*body:
		return Pattern{Type: "hammer", Index: i, Strength: math.Min(lower/body/cfg.HammerShadow, 2), Bias: BiasBullish}, true
	case upper >= cfg.HammerShadow*body && lower < 0.5*body:
		return Pattern{Type: "inverted_hammer", Index: i, Strength: math.Min(upper/body/cfg.HammerShadow, 2), Bias: BiasBullish}, true
	}
	return Pattern{}, false
}

func engulfing(prev, cur core.Bar, i int, cfg PatternConfig) (Pattern, bool) {
	pb, cb := prev.Body(), cur.Body()
	if pb < cfg.MinBody || cb < cfg.MinBody {
		return Pattern{}, false
	}
	strength := math.Min(cb/pb, 2)
	switch {
	case cur.Bullish() && prev.Bearish() && cur.Close >= prev.Open && cur.Open <= prev.Close:
		return Pattern{Type: "bullish_engulfing", Index: i, Strength: strength, Bias: BiasBullish}, true
	case cur.Bearish() && prev.Bullish() && cur.Close <= prev.Open && cur.Open >= prev.Close:
		return Pattern{Type: "bearish_engulfing", Index: i, Strength: strength, Bias: BiasBearish}, true
	}
	return Pattern{}, false
}

// star reports morning and evening stars: a doji-like middle candle gapped
// beyond the first close, then a third candle reversing with a body at least
// StarOuter of the first.
func star(first, middle, third core.Bar, i int, cfg PatternConfig) (Pattern, bool) {
	if middle.Range() <= 0 || middle.Body()/middle.Range() > cfg.StarMiddle {
		return Pattern{}, false
	}
	fb, tb := first.Body(), third.Body()
	if fb < cfg.MinBody || tb < cfg.MinBody || tb/fb < cfg.StarOuter {
		return Pattern{}, false
	}
	switch {
	case first.Bearish() && third.Bullish() && math.Max(middle.Open, middle.Close) < first.Close:
		return Pattern{Type: "morning_star", Index: i, Strength: 1.5, Bias: BiasBullish}, true
	case first.Bullish() && third.Bearish() && math.Min(middle.Open, middle.Close) > first.Close:
		return Pattern{Type: "evening_star", Index: i, Strength: 1.5, Bias: BiasBearish}, true
	}
	return Pattern{}, false
}

// Patterns scores recent candlestick formations.
type Patterns struct {
	Config PatternConfig
}

// NewPatterns returns the analyzer with default tolerances.
func NewPatterns() *Patterns {
	return &Patterns{Config: DefaultPatternConfig()}
}

func (p *Patterns) Name() string { return NamePatterns }

func (p *Patterns) Analyze(_ context.Context, s *series.Series) (ContextReading, error) {
	if err := s.Require(1); err != nil {
		return ContextReading{}, err
	}
	found := DetectPatterns(s, p.Config)
	r := ContextReading{Metrics: map[string]float64{"count": float64(len(found))}}
	for _, pat := range found {
		switch pat.Bias {
		case BiasBullish:
			r.BuyStrength += pat.Strength * 10
		case BiasBearish:
			r.SellStrength += pat.Strength * 10
		}
		r.signal(fmt.Sprintf("%s (%s, %.2f)", pat.Type, pat.Bias, pat.Strength))
	}
	r.BuyStrength = math.Min(r.BuyStrength, 100)
	r.SellStrength = math.Min(r.SellStrength, 100)
	return r, nil
}
