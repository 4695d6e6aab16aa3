// Package binance fetches klines from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

const (
	baseURL  = "https://api.binance.com"
	maxLimit = 1000
)

// Binance implements collector.Provider for the Binance exchange.
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance provider
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// FetchSeries fetches the most recent klines.
func (b *Binance) FetchSeries(ctx context.Context, symbol, interval string, limit int) (*series.Series, error) {
	if err := collector.ValidateInterval(interval); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, core.Errorf(core.ErrFetchFailed, "binance: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, core.Errorf(core.ErrFetchFailed, "binance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.Errorf(core.ErrFetchFailed, "binance: reading body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		// -1121: invalid symbol
		if apiErr.Code == -1121 {
			return nil, core.Errorf(core.ErrSymbolNotFound, "binance: %s", symbol)
		}
		return nil, core.Errorf(core.ErrFetchFailed, "binance: status %d: %s", resp.StatusCode, apiErr.Msg)
	}

	var klines [][]any
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, core.Errorf(core.ErrMalformedData, "binance: decoding klines: %w", err)
	}
	if len(klines) == 0 {
		return nil, core.Errorf(core.ErrNoData, "binance: %s %s", symbol, interval)
	}

	bars := make([]core.Bar, len(klines))
	for i, k := range klines {
		bar, err := parseKline(k)
		if err != nil {
			return nil, core.Errorf(core.ErrMalformedData, "binance: kline %d: %w", i, err)
		}
		bars[i] = bar
	}
	return series.New(symbol, interval, bars)
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(k []any) (core.Bar, error) {
	if len(k) < 6 {
		return core.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(k))
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return core.Bar{}, fmt.Errorf("open time %v is not a number", k[0])
	}
	var vals [5]float64
	for j := range vals {
		s, ok := k[j+1].(string)
		if !ok {
			return core.Bar{}, fmt.Errorf("field %d is not a string", j+1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("field %d: %w", j+1, err)
		}
		vals[j] = v
	}
	return core.Bar{
		Time:   time.UnixMilli(int64(openTime)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
