package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/app"
	"github.com/newthinker/cryptosignal/internal/backtest"
)

var (
	backtestInterval string
	backtestLimit    int
	backtestWindow   int
	backtestJSON     bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL",
	Short: "Replay the decision pipeline over historical bars",
	Long: `Fetch up to --limit bars and evaluate the pipeline on every rolling window,
opening a long on each buy decision and closing it on the next sell, then
show performance statistics.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVarP(&backtestInterval, "interval", "i", "1h", "bar interval")
	backtestCmd.Flags().IntVarP(&backtestLimit, "limit", "l", 1000, "number of bars to fetch")
	backtestCmd.Flags().IntVarP(&backtestWindow, "window", "w", backtest.DefaultWindow, "bars per evaluation window")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if backtestWindow < 2 || backtestWindow > backtestLimit {
		return fmt.Errorf("window must be between 2 and limit (%d)", backtestLimit)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	return withApp(ctx, func(a *app.App, log *zap.Logger) error {
		log.Info("running backtest",
			zap.String("symbol", args[0]),
			zap.String("interval", backtestInterval),
			zap.Int("limit", backtestLimit),
			zap.Int("window", backtestWindow),
		)

		res, err := a.BacktesterWithWindow(backtestWindow).RunSymbol(ctx, args[0], backtestInterval, backtestLimit)
		if err != nil {
			return err
		}

		if backtestJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printBacktest(cmd.OutOrStdout(), res)
		return nil
	})
}

func printBacktest(out io.Writer, r *backtest.Result) {
	const day = "2006-01-02 15:04"
	st := r.Stats

	fmt.Fprintln(out, "=== cryptosignal backtest ===")
	fmt.Fprintf(out, "Symbol:       %s %s\n", r.Symbol, r.Interval)
	fmt.Fprintf(out, "Period:       %s to %s\n", r.StartDate.UTC().Format(day), r.EndDate.UTC().Format(day))
	fmt.Fprintf(out, "Evaluations:  %d (%d skipped), window %d\n", r.Evaluations, r.Skipped, r.Window)
	fmt.Fprintf(out, "Signals:      %d\n", len(r.Signals))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Trades:       %d (%d won, %d lost)\n", st.TotalTrades, st.WinningTrades, st.LosingTrades)
	fmt.Fprintf(out, "Win rate:     %.1f%%\n", st.WinRate)
	fmt.Fprintf(out, "Total return: %+.2f%%\n", st.TotalReturn)
	fmt.Fprintf(out, "Avg return:   %+.2f%%\n", st.AverageReturn)
	fmt.Fprintf(out, "Max drawdown: %.2f%%\n", st.MaxDrawdown)
	fmt.Fprintf(out, "Sharpe:       %.2f\n", st.SharpeRatio)

	if len(r.Trades) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nENTRY\tPRICE\tEXIT\tPRICE\tREASON\tRETURN")
	for _, t := range r.Trades {
		fmt.Fprintf(w, "%s\t%.4f\t%s\t%.4f\t%s\t%+.2f%%\n",
			t.Entry.Time.UTC().Format(day), t.Entry.Price,
			t.Exit.Time.UTC().Format(day), t.Exit.Price,
			t.ExitReason, t.Return*100)
	}
	_ = w.Flush()
}
