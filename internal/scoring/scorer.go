package scoring

import (
	"fmt"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Scorer evaluates a profile's indicators and aggregates their strengths.
type Scorer struct {
	profile Profile
	rules   map[string]Rule
}

// New creates a Scorer with the built-in rules.
func New(profile Profile) *Scorer {
	return &Scorer{profile: profile, rules: DefaultRules()}
}

// NewWithRules creates a Scorer with custom rules; rules override built-ins
// of the same name.
func NewWithRules(profile Profile, rules ...Rule) *Scorer {
	s := New(profile)
	for _, r := range rules {
		s.rules[r.Name()] = r
	}
	return s
}

// Profile returns the active profile.
func (s *Scorer) Profile() Profile {
	return s.profile
}

// Score computes the aggregate signal for the latest bar of ser.
// At least two bars are required.
func (s *Scorer) Score(ser *series.Series) (AggregateSignal, error) {
	if err := ser.Require(2); err != nil {
		return AggregateSignal{}, err
	}
	cur, _ := ser.Current()
	prev, _ := ser.Previous()

	agg := AggregateSignal{
		Symbol:        ser.Symbol(),
		Profile:       s.profile.Name,
		Indicators:    make(map[string]IndicatorReading, len(s.profile.Weights)),
		Order:         make([]string, 0, len(s.profile.Weights)),
		CurrentPrice:  cur.Close,
		PreviousPrice: prev.Close,
		Deltas:        deltas(ser),
	}

	var buy, sell float64
	for _, w := range s.profile.Weights {
		rule, ok := s.rules[w.Indicator]
		if !ok {
			return AggregateSignal{}, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("profile %s: no rule for indicator %q", s.profile.Name, w.Indicator))
		}
		r := rule.Evaluate(ser, w.Weight)
		r.BuyStrength = clamp(r.BuyStrength, 0, w.Weight)
		r.SellStrength = clamp(r.SellStrength, 0, w.Weight)

		agg.Indicators[r.Name] = r
		agg.Order = append(agg.Order, r.Name)
		buy += r.BuyStrength
		sell += r.SellStrength
	}

	agg.TotalBuy = clamp(buy, 0, 100)
	agg.TotalSell = clamp(sell, 0, 100)
	return agg, nil
}

// deltas compares the latest bar with the bar at offset -24 from the end
// (23 bars before it), or with the first bar for series of 24 bars or fewer.
func deltas(ser *series.Series) *Deltas {
	n := ser.Len()
	ref := 0
	if n > 24 {
		ref = n - 24
	}
	base := ser.Bar(ref)
	last := ser.Bar(n - 1)
	if base.Close == 0 {
		return nil
	}

	d := &Deltas{PriceChange24h: (last.Close - base.Close) / base.Close * 100}
	if base.Volume > 0 {
		v := (last.Volume - base.Volume) / base.Volume * 100
		d.VolumeChange24h = &v
	}
	return d
}
