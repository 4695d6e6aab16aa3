package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/decision"
	"github.com/newthinker/cryptosignal/internal/monitor"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

var (
	_ Store        = (*MemoryStore)(nil)
	_ monitor.Sink = (*MemoryStore)(nil)
)

var t0 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func rep(symbol, interval string, action core.Action, hour int) *pipeline.Report {
	return &pipeline.Report{
		Symbol:      symbol,
		Interval:    interval,
		Decision:    decision.Decision{Action: action},
		GeneratedAt: t0.Add(time.Duration(hour) * time.Hour),
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	e, err := store.Save(ctx, Entry{Report: rep("BTCUSDT", "1h", core.ActionBuy, 0)})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	got, err := store.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", got.Report.Symbol)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = store.Save(ctx, Entry{})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	for i, r := range []*pipeline.Report{
		rep("BTCUSDT", "1h", core.ActionBuy, 0),
		rep("ETHUSDT", "1h", core.ActionSell, 1),
		rep("BTCUSDT", "4h", core.ActionHold, 2),
		rep("BTCUSDT", "1h", core.ActionHold, 3),
	} {
		_, err := store.Save(ctx, Entry{Report: r})
		require.NoError(t, err, "entry %d", i)
	}

	all, err := store.List(ctx, ListFilter{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, t0.Add(3*time.Hour), all[0].Report.GeneratedAt, "newest first")

	hourly, err := store.List(ctx, ListFilter{Symbol: "BTCUSDT", Interval: "1h"})
	require.NoError(t, err)
	assert.Len(t, hourly, 2)

	sells, err := store.Count(ctx, ListFilter{Action: core.ActionSell})
	require.NoError(t, err)
	assert.Equal(t, 1, sells)

	window, err := store.List(ctx, ListFilter{From: t0.Add(time.Hour), To: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	page, err := store.List(ctx, ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "4h", page[0].Report.Interval)

	empty, err := store.List(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_CapacityKeepsLatest(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	_, err := store.Save(ctx, Entry{Report: rep("SOLUSDT", "1h", core.ActionBuy, 0)})
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := store.Save(ctx, Entry{Report: rep("BTCUSDT", "1h", core.ActionHold, i)})
		require.NoError(t, err)
	}

	n, err := store.Count(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "BTCUSDT", latest[0].Report.Symbol)
	assert.Equal(t, t0.Add(3*time.Hour), latest[0].Report.GeneratedAt)
	assert.Equal(t, "SOLUSDT", latest[1].Report.Symbol)

	store.Forget("SOLUSDT", "")
	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestMemoryStore_Publish(t *testing.T) {
	store := NewMemoryStore(10)
	id := uuid.New()
	b := monitor.Batch{
		ID: id,
		Results: []monitor.Result{
			{Symbol: "BTCUSDT", Interval: "1h", Report: rep("BTCUSDT", "1h", core.ActionBuy, 0)},
			{Symbol: "ETHUSDT", Interval: "1h", Err: core.ErrNoData},
		},
	}
	require.NoError(t, store.Publish(context.Background(), b))

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, id, latest[0].BatchID)
}
