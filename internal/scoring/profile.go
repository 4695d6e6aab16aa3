package scoring

import (
	"sort"

	"github.com/newthinker/cryptosignal/internal/core"
)

// Weight assigns a share of the 100-point budget to one indicator.
type Weight struct {
	Indicator string  `json:"indicator"`
	Weight    float64 `json:"weight"`
}

// Profile is a named indicator weight set. Weights of every built-in
// profile sum to 100, so capping the totals is only a safety net.
type Profile struct {
	Name    string   `json:"name"`
	Weights []Weight `json:"weights"`
}

// Budget returns the sum of the profile's weights.
func (p Profile) Budget() float64 {
	var sum float64
	for _, w := range p.Weights {
		sum += w.Weight
	}
	return sum
}

// Built-in profiles.
var (
	// ProfileCrypto uses every indicator, with extra weight on ADX for
	// trending crypto pairs.
	ProfileCrypto = Profile{Name: "crypto", Weights: []Weight{
		{RSI, 15},
		{MACD, 15},
		{Stochastic, 10},
		{Bollinger, 20},
		{ADX, 20},
		{Volume, 10},
		{MACross, 10},
	}}

	// ProfileClassic drops volume and MA cross and scores the oscillators only.
	ProfileClassic = Profile{Name: "classic", Weights: []Weight{
		{RSI, 20},
		{MACD, 20},
		{Stochastic, 15},
		{Bollinger, 25},
		{ADX, 20},
	}}

	// ProfileMinimal is a reduced set for short histories and thin markets.
	ProfileMinimal = Profile{Name: "minimal", Weights: []Weight{
		{RSI, 40},
		{MACD, 40},
		{MACross, 20},
	}}
)

var profiles = map[string]Profile{
	ProfileCrypto.Name:  ProfileCrypto,
	ProfileClassic.Name: ProfileClassic,
	ProfileMinimal.Name: ProfileMinimal,
}

// ProfileByName looks up a built-in profile. An empty name selects crypto.
func ProfileByName(name string) (Profile, error) {
	if name == "" {
		return ProfileCrypto, nil
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, core.Errorf(core.ErrConfigInvalid, "unknown scoring profile %q", name)
	}
	return p, nil
}

// ProfileNames lists the built-in profile names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
