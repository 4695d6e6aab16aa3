// Package okx fetches candles from the OKX v5 market REST API.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

const (
	baseURL  = "https://www.okx.com"
	maxLimit = 300

	codeOK               = "0"
	codeInstrumentAbsent = "51001"
)

// OKX implements collector.Provider for the OKX exchange.
type OKX struct {
	client  *http.Client
	baseURL string
}

// New creates a new OKX provider
func New() *OKX {
	return &OKX{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates an OKX provider with custom base URL (for testing)
func NewWithBaseURL(url string) *OKX {
	o := New()
	o.baseURL = url
	return o
}

func (o *OKX) Name() string {
	return "okx"
}

// toInstID converts normalized symbol to OKX instrument ID
// BTCUSDT -> BTC-USDT
func toInstID(symbol string) string {
	base, quote := collector.ParseSymbol(symbol)
	if quote == "" {
		return base
	}
	return base + "-" + quote
}

// toBar maps engine intervals to OKX bar sizes, which capitalise hours and
// longer.
func toBar(interval string) string {
	if strings.HasSuffix(interval, "m") {
		return interval
	}
	return strings.ToUpper(interval)
}

type candleResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// FetchSeries fetches the most recent candles. OKX returns newest first;
// the series is reversed into chronological order.
func (o *OKX) FetchSeries(ctx context.Context, symbol, interval string, limit int) (*series.Series, error) {
	if err := collector.ValidateInterval(interval); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	q := url.Values{}
	q.Set("instId", toInstID(symbol))
	q.Set("bar", toBar(interval))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/v5/market/candles?"+q.Encode(), nil)
	if err != nil {
		return nil, core.Errorf(core.ErrFetchFailed, "okx: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, core.Errorf(core.ErrFetchFailed, "okx: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.Errorf(core.ErrFetchFailed, "okx: status %d", resp.StatusCode)
	}

	var result candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.Errorf(core.ErrMalformedData, "okx: decoding candles: %w", err)
	}
	switch result.Code {
	case codeOK:
	case codeInstrumentAbsent:
		return nil, core.Errorf(core.ErrSymbolNotFound, "okx: %s", symbol)
	default:
		return nil, core.Errorf(core.ErrFetchFailed, "okx: code %s: %s", result.Code, result.Msg)
	}
	if len(result.Data) == 0 {
		return nil, core.Errorf(core.ErrNoData, "okx: %s %s", symbol, interval)
	}

	n := len(result.Data)
	bars := make([]core.Bar, n)
	for i, candle := range result.Data {
		bar, err := parseCandle(candle)
		if err != nil {
			return nil, core.Errorf(core.ErrMalformedData, "okx: candle %d: %w", i, err)
		}
		bars[n-1-i] = bar
	}
	return series.New(symbol, interval, bars)
}

// parseCandle reads [ts, open, high, low, close, vol, ...].
func parseCandle(c []string) (core.Bar, error) {
	if len(c) < 6 {
		return core.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(c))
	}
	ts, err := strconv.ParseInt(c[0], 10, 64)
	if err != nil {
		return core.Bar{}, fmt.Errorf("timestamp: %w", err)
	}
	var vals [5]float64
	for j := range vals {
		v, err := strconv.ParseFloat(c[j+1], 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("field %d: %w", j+1, err)
		}
		vals[j] = v
	}
	return core.Bar{
		Time:   time.UnixMilli(ts).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
