package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/cryptosignal/internal/core"
)

func TestState_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.yaml")
	want := State{
		Symbols: []WatchItem{
			{Symbol: "SOLUSDT", Interval: "4h"},
			{Symbol: "BTCUSDT", Interval: "1h"},
		},
		RefreshInterval: 90 * time.Second,
	}

	require.NoError(t, SaveState(path, want))
	got, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestState_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, SaveState(path, DefaultState()))

	next := State{Symbols: []WatchItem{{Symbol: "ETHUSDT", Interval: "1d"}}, RefreshInterval: time.Minute}
	require.NoError(t, SaveState(path, next))

	got, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestLoadState_Missing(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultState(), st)
}

func TestLoadState_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *core.Error
	}{
		{"garbage", "symbols: [{{", core.ErrConfigInvalid},
		{"bad duration", "refresh_interval: soon\n", core.ErrConfigInvalid},
		{"interval too short", "refresh_interval: 5s\n", core.ErrInvalidInterval},
		{"empty symbol", "symbols:\n  - interval: 1h\n", core.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := LoadState(writeFile(t, "state.yaml", tt.content))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, DefaultState(), st)
		})
	}
}

func TestLoadState_DefaultsMissingFields(t *testing.T) {
	st, err := LoadState(writeFile(t, "state.yaml", "symbols:\n  - symbol: DOGEUSDT\n"))
	require.NoError(t, err)
	assert.Equal(t, []WatchItem{{Symbol: "DOGEUSDT", Interval: "1h"}}, st.Symbols)
	assert.Equal(t, time.Minute, st.RefreshInterval)
}
