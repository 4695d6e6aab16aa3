package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
	"github.com/newthinker/cryptosignal/internal/series/seriestest"
)

type stubProvider struct {
	name  string
	s     *series.Series
	err   error
	calls atomic.Int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchSeries(_ context.Context, _, _ string, _ int) (*series.Series, error) {
	p.calls.Add(1)
	return p.s, p.err
}

func TestChain_FallsBackInOrder(t *testing.T) {
	s := seriestest.Linear(t, 10, 100, 1)
	first := &stubProvider{name: "okx", err: core.ErrFetchFailed}
	second := &stubProvider{name: "binance", s: s}
	third := &stubProvider{name: "spare", s: s}

	got, err := NewChain([]Provider{first, second, third}, nil).FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)

	assert.Same(t, s, got)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
	assert.Equal(t, int32(0), third.calls.Load())
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain([]Provider{
		&stubProvider{name: "okx", err: core.ErrFetchFailed},
		&stubProvider{name: "binance", err: core.ErrSymbolNotFound},
	}, nil)

	_, err := chain.FetchSeries(context.Background(), "NOPEUSDT", "1h", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))
	assert.True(t, core.IsDataError(err))
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain(nil, nil).FetchSeries(context.Background(), "BTCUSDT", "1h", 10)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestRegistry_Chain(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "okx"})
	r.Register(&stubProvider{name: "binance"})

	p, ok := r.Get("okx")
	require.True(t, ok)
	assert.Equal(t, "okx", p.Name())

	chain, err := r.Chain([]string{"binance", "okx"}, nil)
	require.NoError(t, err)
	names := []string{}
	for _, p := range chain.Providers() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"binance", "okx"}, names)

	_, err = r.Chain([]string{"kraken"}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
