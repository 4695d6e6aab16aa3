package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/app"
	"github.com/newthinker/cryptosignal/internal/config"
	"github.com/newthinker/cryptosignal/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "cryptosignal",
	Short: "Crypto technical-analysis signal engine",
	Long: `cryptosignal scores OHLCV series from Binance and OKX with a weighted
indicator set, fuses the score with market context into a trading decision,
and can monitor a watchlist continuously.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings reads the config file, falling back to the defaults when it
// is missing or unusable.
func loadSettings(log *zap.Logger) *config.Settings {
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}
	return config.LoadOrDefault(cfgFile, log)
}

// withApp handles common logger and app setup and teardown.
func withApp(ctx context.Context, fn func(a *app.App, log *zap.Logger) error) error {
	log := logger.Must(debug)
	s := loadSettings(log)
	if s.Log.Debug && !debug {
		log = logger.Must(true)
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, s, app.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing app", zap.Error(err))
		}
	}()
	return fn(a, log)
}
