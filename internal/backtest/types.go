package backtest

import (
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
)

// Exit reasons.
const (
	ExitSignal = "signal"
	ExitEnd    = "end_of_data"
)

// Result holds the complete backtest output
type Result struct {
	Symbol      string    `json:"symbol"`
	Interval    string    `json:"interval"`
	Window      int       `json:"window"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Evaluations int       `json:"evaluations"`
	Skipped     int       `json:"skipped"`
	Signals     []Point   `json:"signals"`
	Trades      []Trade   `json:"trades"`
	Stats       Stats     `json:"stats"`
}

// Point is one actionable decision taken during the replay.
type Point struct {
	Time       time.Time   `json:"time"`
	Price      float64     `json:"price"`
	Action     core.Action `json:"action"`
	Score      float64     `json:"score"`
	Confidence float64     `json:"confidence"`
}

// Trade represents a simulated long trade from entry to exit
type Trade struct {
	Entry      Point   `json:"entry"`
	Exit       Point   `json:"exit"`
	ExitReason string  `json:"exit_reason"`
	Return     float64 `json:"return"` // fraction, 0.05 = +5%
}

// Stats holds performance statistics. Percentages are on the 0-100 scale.
type Stats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalReturn   float64 `json:"total_return"`   // compounded
	AverageReturn float64 `json:"average_return"` // per trade
	MaxDrawdown   float64 `json:"max_drawdown"`   // peak to trough of the equity curve
	SharpeRatio   float64 `json:"sharpe_ratio"`   // per trade, unannualized
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

func tradeReturn(entry, exit float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (exit - entry) / entry
}
