package collector

import (
	"regexp"
	"strings"

	"github.com/newthinker/cryptosignal/internal/core"
)

// DefaultQuote is appended to bare base assets.
const DefaultQuote = "USDT"

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "FDUSD", "BTC", "ETH", "BNB"}

var validSymbol = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizeSymbol converts various input formats to the exchange-neutral
// form used throughout the engine: "btc", "BTC-USDT" and "btc/usdt" all
// become "BTCUSDT".
func NormalizeSymbol(input, defaultQuote string) string {
	if input == "" {
		return ""
	}
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	if defaultQuote == "" {
		defaultQuote = DefaultQuote
	}
	return s + strings.ToUpper(defaultQuote)
}

// ParseSymbol extracts base and quote from a normalized symbol
// "BTCUSDT" -> ("BTC", "USDT")
func ParseSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(symbol)
	for _, q := range quoteCurrencies {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	if len(s) > 4 {
		return s[:len(s)-4], s[len(s)-4:]
	}
	return s, ""
}

// FormatDisplay converts "BTCUSDT" to "BTC/USDT".
func FormatDisplay(symbol string) string {
	base, quote := ParseSymbol(symbol)
	if quote == "" {
		return base
	}
	return base + "/" + quote
}

// ValidateSymbol checks a normalized symbol's format.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return core.Errorf(core.ErrInvalidInput, "symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return core.Errorf(core.ErrInvalidInput, "invalid symbol format: %s", symbol)
	}
	return nil
}

// Intervals are the bar intervals every provider supports.
var Intervals = []string{"1m", "5m", "15m", "30m", "1h", "2h", "4h", "1d", "1w"}

// ValidateInterval rejects intervals outside Intervals.
func ValidateInterval(interval string) error {
	for _, i := range Intervals {
		if i == interval {
			return nil
		}
	}
	return core.Errorf(core.ErrInvalidInput, "unsupported interval %q", interval)
}
