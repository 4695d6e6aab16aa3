package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/app"
)

var (
	watchServe    bool
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the watchlist continuously",
	Long: `Load the saved watchlist and analyze every tracked symbol on each refresh,
publishing results to the configured sinks. With --serve the HTTP API runs
alongside the monitor.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchServe, "serve", true, "run the HTTP API")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh interval, overriding the saved state")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(a *app.App, log *zap.Logger) error {
		if err := a.RestoreState(); err != nil {
			return err
		}
		if watchInterval > 0 {
			if err := a.Monitor().SetInterval(watchInterval); err != nil {
				return err
			}
			if err := a.SaveState(); err != nil {
				log.Warn("failed to save state", zap.Error(err))
			}
		}

		log.Info("cryptosignal watching",
			zap.Int("symbols", len(a.Watchlist())),
			zap.Duration("interval", a.Monitor().Interval()),
			zap.Bool("api", watchServe),
		)

		err := a.Run(ctx, watchServe)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("cryptosignal stopped", zap.Any("stats", a.Stats()))
		return nil
	})
}
