package binance

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

var _ collector.Provider = (*Binance)(nil)

func serve(t *testing.T, status int, body string) *Binance {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewWithBaseURL(srv.URL)
}

func TestBinance_Name(t *testing.T) {
	assert.Equal(t, "binance", New().Name())
}

func TestFetchSeries(t *testing.T) {
	b := serve(t, http.StatusOK, `[
		[1704067200000, "42000.1", "42100.0", "41900.5", "42050.0", "12.5", 1704070799999, "0", 100, "0", "0", "0"],
		[1704070800000, "42050.0", "42200.0", "42000.0", "42150.0", "8.25", 1704074399999, "0", 80, "0", "0", "0"]
	]`)

	s, err := b.FetchSeries(context.Background(), "BTCUSDT", "1h", 2)
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, "1h", s.Interval())
	first := s.Bar(0)
	assert.Equal(t, 42000.1, first.Open)
	assert.Equal(t, 41900.5, first.Low)
	assert.Equal(t, 12.5, first.Volume)
	assert.Equal(t, int64(1704067200000), first.Time.UnixMilli())
	cur, _ := s.Current()
	assert.Equal(t, 42150.0, cur.Close)
}

func TestFetchSeries_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad number", `[[1704067200000, "x", "1", "1", "1", "1"]]`},
		{"short row", `[[1704067200000, "1", "1"]]`},
		{"numeric price", `[[1704067200000, 1, "1", "1", "1", "1"]]`},
		{"not json", `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serve(t, http.StatusOK, tt.body).FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
			assert.True(t, errors.Is(err, core.ErrMalformedData), "got %v", err)
		})
	}
}

func TestFetchSeries_Errors(t *testing.T) {
	_, err := serve(t, http.StatusOK, `[]`).FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
	assert.True(t, errors.Is(err, core.ErrNoData))

	_, err = serve(t, http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`).
		FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))

	_, err = serve(t, http.StatusTeapot, `{}`).FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
	assert.True(t, errors.Is(err, core.ErrFetchFailed))
	assert.True(t, core.IsDataError(err))

	_, err = New().FetchSeries(context.Background(), "BTCUSDT", "7h", 10)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestFetchSeries_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s, err := New().FetchSeries(context.Background(), "BTCUSDT", "1h", 50)
	if err != nil {
		t.Skipf("binance unreachable: %v", err)
	}
	assert.Equal(t, 50, s.Len())
}
