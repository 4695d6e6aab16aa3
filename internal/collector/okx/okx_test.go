package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
)

var _ collector.Provider = (*OKX)(nil)

func serve(t *testing.T, body string) *OKX {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/candles", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.Equal(t, "1H", r.URL.Query().Get("bar"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewWithBaseURL(srv.URL)
}

func TestToInstID(t *testing.T) {
	tests := []struct {
		symbol   string
		expected string
	}{
		{"BTCUSDT", "BTC-USDT"},
		{"ETHUSDT", "ETH-USDT"},
		{"ETHBTC", "ETH-BTC"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, toInstID(tc.symbol))
	}
}

func TestToBar(t *testing.T) {
	assert.Equal(t, "15m", toBar("15m"))
	assert.Equal(t, "4H", toBar("4h"))
	assert.Equal(t, "1D", toBar("1d"))
	assert.Equal(t, "1W", toBar("1w"))
}

func TestFetchSeries_ReversesNewestFirst(t *testing.T) {
	o := serve(t, `{"code":"0","msg":"","data":[
		["1704070800000","42050","42200","42000","42150","8.25","0","0","1"],
		["1704067200000","42000","42100","41900","42050","12.5","0","0","1"]
	]}`)

	s, err := o.FetchSeries(context.Background(), "BTCUSDT", "1h", 2)
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, int64(1704067200000), s.Bar(0).Time.UnixMilli())
	cur, _ := s.Current()
	assert.Equal(t, 42150.0, cur.Close)
}

func TestFetchSeries_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *core.Error
	}{
		{"malformed field", `{"code":"0","data":[["1704067200000","abc","1","1","1","1"]]}`, core.ErrMalformedData},
		{"malformed time", `{"code":"0","data":[["yesterday","1","1","1","1","1"]]}`, core.ErrMalformedData},
		{"short candle", `{"code":"0","data":[["1704067200000","1"]]}`, core.ErrMalformedData},
		{"empty", `{"code":"0","data":[]}`, core.ErrNoData},
		{"unknown instrument", `{"code":"51001","msg":"Instrument ID does not exist"}`, core.ErrSymbolNotFound},
		{"api error", `{"code":"50011","msg":"Too Many Requests"}`, core.ErrFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serve(t, tt.body).FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
