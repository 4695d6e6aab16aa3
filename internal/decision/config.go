package decision

import (
	"github.com/newthinker/cryptosignal/internal/core"
)

// Fusion configuration names.
const (
	Basic    = "basic"
	Extended = "extended"
)

// Weights scale each fused component. Components are in [-1,1], so a
// weight is the component's maximum contribution to the score.
type Weights struct {
	Trend      float64 `json:"trend"`
	Indicator  float64 `json:"indicator"`
	Volume     float64 `json:"volume"`
	Volatility float64 `json:"volatility"`
	Phase      float64 `json:"phase"`
	Pattern    float64 `json:"pattern"`
	ML         float64 `json:"ml"`
}

// Thresholds map the score onto actions. Sell thresholds are positive and
// compared against the negated score.
type Thresholds struct {
	StrongBuy  float64 `json:"strong_buy"`
	Buy        float64 `json:"buy"`
	StrongSell float64 `json:"strong_sell"`
	Sell       float64 `json:"sell"`
}

// Config is a complete fusion configuration.
type Config struct {
	Name              string     `json:"name"`
	Weights           Weights    `json:"weights"`
	Thresholds        Thresholds `json:"thresholds"`
	ConfidenceScale   float64    `json:"confidence_scale"`
	VolatilityCeiling float64    `json:"volatility_ceiling"`
	// Advice enables the advisor strings of the extended configuration.
	Advice bool `json:"advice"`
}

// BasicConfig fuses trend, indicators, volume and volatility.
func BasicConfig() Config {
	return Config{
		Name:              Basic,
		Weights:           Weights{Trend: 40, Indicator: 30, Volume: 20, Volatility: 10},
		Thresholds:        Thresholds{StrongBuy: 60, Buy: 30, StrongSell: 60, Sell: 30},
		ConfidenceScale:   1,
		VolatilityCeiling: 5,
	}
}

// ExtendedConfig adds market phase, candlestick patterns and the model
// prediction, and lowers the thresholds to match the smaller core weights.
func ExtendedConfig() Config {
	return Config{
		Name: Extended,
		Weights: Weights{
			Trend: 25, Indicator: 25, Volume: 10, Volatility: 5,
			Phase: 15, Pattern: 5, ML: 15,
		},
		Thresholds:        Thresholds{StrongBuy: 45, Buy: 20, StrongSell: 45, Sell: 20},
		ConfidenceScale:   1.5,
		VolatilityCeiling: 5,
		Advice:            true,
	}
}

// ConfigByName resolves a fusion configuration; empty means basic.
func ConfigByName(name string) (Config, error) {
	switch name {
	case "", Basic:
		return BasicConfig(), nil
	case Extended:
		return ExtendedConfig(), nil
	default:
		return Config{}, core.Errorf(core.ErrConfigInvalid, "unknown fusion %q", name)
	}
}
