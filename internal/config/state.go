package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/cryptosignal/internal/core"
)

// WatchItem is one tracked symbol.
type WatchItem struct {
	Symbol   string `mapstructure:"symbol" json:"symbol"`
	Interval string `mapstructure:"interval" json:"interval"`
}

// State is the persisted monitoring session: what to track and how often.
type State struct {
	Symbols         []WatchItem   `mapstructure:"symbols" json:"symbols"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" json:"refresh_interval"`
}

// DefaultState tracks BTC and ETH hourly, refreshed every minute.
func DefaultState() State {
	return State{
		Symbols: []WatchItem{
			{Symbol: "BTCUSDT", Interval: "1h"},
			{Symbol: "ETHUSDT", Interval: "1h"},
		},
		RefreshInterval: time.Minute,
	}
}

// LoadState reads the state document at path. A missing file returns the
// default state without error; a corrupt one returns the default state and
// the error so the caller can log it.
func LoadState(path string) (State, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultState(), nil
		}
		return DefaultState(), core.Errorf(core.ErrConfigInvalid, "reading state %s: %w", path, err)
	}

	var st State
	if err := v.Unmarshal(&st); err != nil {
		return DefaultState(), core.Errorf(core.ErrConfigInvalid, "decoding state %s: %w", path, err)
	}
	if st.RefreshInterval == 0 {
		st.RefreshInterval = DefaultState().RefreshInterval
	}
	if st.RefreshInterval < core.MinRefreshInterval {
		return DefaultState(), core.Errorf(core.ErrInvalidInterval, "state %s: refresh interval %s", path, st.RefreshInterval)
	}
	for i, item := range st.Symbols {
		if item.Symbol == "" {
			return DefaultState(), core.Errorf(core.ErrConfigInvalid, "state %s: symbol %d is empty", path, i)
		}
		if item.Interval == "" {
			st.Symbols[i].Interval = "1h"
		}
	}
	return st, nil
}

// SaveState writes st to path atomically: the document is written to a
// temporary file in the same directory and renamed over the target.
func SaveState(path string, st State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	symbols := make([]map[string]any, len(st.Symbols))
	for i, item := range st.Symbols {
		symbols[i] = map[string]any{"symbol": item.Symbol, "interval": item.Interval}
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("symbols", symbols)
	v.Set("refresh_interval", st.RefreshInterval.String())

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp state: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()

	if err := v.WriteConfigAs(tmpName); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}
