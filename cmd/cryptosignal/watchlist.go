package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/config"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/logger"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the saved watchlist",
	Long:  `Commands for editing the tracked symbols and refresh interval used by watch.`,
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked symbols",
	Args:  cobra.NoArgs,
	RunE:  runWatchlistList,
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add SYMBOL [SYMBOL...]",
	Short: "Track symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatchlistAdd,
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove SYMBOL [SYMBOL...]",
	Short: "Stop tracking symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatchlistRemove,
}

var watchlistIntervalCmd = &cobra.Command{
	Use:   "interval DURATION",
	Short: "Set the refresh interval, e.g. 5m",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchlistInterval,
}

var (
	addInterval    string
	removeInterval string
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)
	watchlistCmd.AddCommand(watchlistIntervalCmd)

	watchlistAddCmd.Flags().StringVarP(&addInterval, "interval", "i", "1h", "bar interval")
	watchlistRemoveCmd.Flags().StringVarP(&removeInterval, "interval", "i", "", "bar interval (default: all)")
}

// withState loads the state document, lets fn edit it and saves it when fn
// reports a change.
func withState(fn func(st *config.State) (bool, error)) error {
	log := logger.Must(debug)
	defer func() { _ = log.Sync() }()

	path := config.ExpandHome(loadSettings(log).Monitor.StateFile)
	st, err := config.LoadState(path)
	if err != nil {
		log.Warn("state unusable, starting from defaults", zap.String("path", path), zap.Error(err))
	}

	changed, err := fn(&st)
	if err != nil || !changed {
		return err
	}
	if err := config.SaveState(path, st); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	log.Debug("state saved", zap.String("path", path))
	return nil
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	return withState(func(st *config.State) (bool, error) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tINTERVAL")
		for _, item := range st.Symbols {
			fmt.Fprintf(w, "%s\t%s\n", collector.FormatDisplay(item.Symbol), item.Interval)
		}
		fmt.Fprintf(w, "\nRefresh every %s\n", st.RefreshInterval)
		return false, w.Flush()
	})
}

func runWatchlistAdd(cmd *cobra.Command, args []string) error {
	if err := collector.ValidateInterval(addInterval); err != nil {
		return err
	}
	return withState(func(st *config.State) (bool, error) {
		changed := false
		for _, arg := range args {
			symbol := collector.NormalizeSymbol(arg, collector.DefaultQuote)
			if err := collector.ValidateSymbol(symbol); err != nil {
				return changed, err
			}
			item := config.WatchItem{Symbol: symbol, Interval: addInterval}
			if contains(st.Symbols, item) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s already tracked\n", symbol, item.Interval)
				continue
			}
			st.Symbols = append(st.Symbols, item)
			changed = true
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", symbol, item.Interval)
		}
		return changed, nil
	})
}

func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	return withState(func(st *config.State) (bool, error) {
		removed := 0
		for _, arg := range args {
			symbol := collector.NormalizeSymbol(arg, collector.DefaultQuote)
			kept := st.Symbols[:0]
			for _, item := range st.Symbols {
				if item.Symbol == symbol && (removeInterval == "" || item.Interval == removeInterval) {
					removed++
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", item.Symbol, item.Interval)
					continue
				}
				kept = append(kept, item)
			}
			st.Symbols = kept
		}
		if removed == 0 {
			return false, core.Errorf(core.ErrNotFound, "no matching symbols tracked")
		}
		return true, nil
	})
}

func runWatchlistInterval(cmd *cobra.Command, args []string) error {
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return core.Errorf(core.ErrInvalidInput, "bad duration %q", args[0])
	}
	if d < core.MinRefreshInterval {
		return core.Errorf(core.ErrInvalidInterval, "%s below %s", d, core.MinRefreshInterval)
	}
	return withState(func(st *config.State) (bool, error) {
		st.RefreshInterval = d
		fmt.Fprintf(cmd.OutOrStdout(), "refresh interval set to %s\n", d)
		return true, nil
	})
}

func contains(items []config.WatchItem, item config.WatchItem) bool {
	for _, existing := range items {
		if existing == item {
			return true
		}
	}
	return false
}
