// Package scoring converts indicator values into bounded buy/sell strengths
// and aggregates them into a single signal per series.
package scoring

// Trend and cross flags carried by an IndicatorReading.
const (
	FlagBullishCross = "bullish_cross"
	FlagBearishCross = "bearish_cross"
	FlagUp           = "up"
	FlagDown         = "down"
)

// IndicatorReading is one indicator's scored opinion on the latest bar.
type IndicatorReading struct {
	Name         string             `json:"name"`
	Value        float64            `json:"value"`
	Previous     float64            `json:"previous"`
	Flag         string             `json:"flag,omitempty"`
	Insufficient bool               `json:"insufficient,omitempty"`
	Weight       float64            `json:"weight"`
	BuyStrength  float64            `json:"buy_strength"`
	SellStrength float64            `json:"sell_strength"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Deltas holds changes against the bar 24 intervals back.
type Deltas struct {
	PriceChange24h  float64  `json:"price_change_24h"`
	VolumeChange24h *float64 `json:"volume_change_24h,omitempty"`
}

// AggregateSignal is the capped sum of every active indicator reading.
type AggregateSignal struct {
	Symbol        string                      `json:"symbol"`
	Profile       string                      `json:"profile"`
	Indicators    map[string]IndicatorReading `json:"indicators"`
	Order         []string                    `json:"order"`
	TotalBuy      float64                     `json:"total_buy"`
	TotalSell     float64                     `json:"total_sell"`
	CurrentPrice  float64                     `json:"current_price"`
	PreviousPrice float64                     `json:"previous_price"`
	Deltas        *Deltas                     `json:"deltas,omitempty"`
}

// Reading returns the named reading and whether it carries a usable value.
func (a AggregateSignal) Reading(name string) (IndicatorReading, bool) {
	r, ok := a.Indicators[name]
	return r, ok && !r.Insufficient
}

// Net returns TotalBuy minus TotalSell.
func (a AggregateSignal) Net() float64 {
	return a.TotalBuy - a.TotalSell
}
