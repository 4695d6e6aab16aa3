package core

import (
	"math"
	"time"
)

// Bar represents a single OHLCV candlestick.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Finite reports whether every numeric field is a finite number.
func (b Bar) Finite() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Body returns the absolute candle body size.
func (b Bar) Body() float64 {
	return math.Abs(b.Close - b.Open)
}

// Range returns high minus low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Bullish reports whether the candle closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Bearish reports whether the candle closed below its open.
func (b Bar) Bearish() bool {
	return b.Close < b.Open
}

// Action represents a trading recommendation
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionHold       Action = "HOLD"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// IsBuy reports whether the action opens or adds to a long position.
func (a Action) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

// IsSell reports whether the action reduces or shorts.
func (a Action) IsSell() bool {
	return a == ActionSell || a == ActionStrongSell
}

// RiskLevel is the qualitative risk tier attached to a decision.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// Downgrade moves the level one step toward HIGH.
func (r RiskLevel) Downgrade() RiskLevel {
	switch r {
	case RiskLow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// MoreConservative returns the riskier of the two levels.
func MoreConservative(a, b RiskLevel) RiskLevel {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// MinRefreshInterval is the shortest allowed live-monitoring period.
const MinRefreshInterval = 30 * time.Second

// Direction is the output of a price-direction predictor.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)
