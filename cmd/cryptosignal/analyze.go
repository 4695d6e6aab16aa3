package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/app"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

var (
	analyzeInterval    string
	analyzeLimit       int
	analyzeBalance     float64
	analyzeRiskPercent float64
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL [SYMBOL...]",
	Short: "Analyze symbols once and print the decision",
	Long: `Fetch the latest bars for each symbol, score the indicators, fuse them with
market context and print the resulting decision and position plan.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInterval, "interval", "i", "", "bar interval (default from config)")
	analyzeCmd.Flags().IntVarP(&analyzeLimit, "limit", "l", 0, "number of bars to fetch (default from config)")
	analyzeCmd.Flags().Float64Var(&analyzeBalance, "balance", 0, "account balance for position sizing")
	analyzeCmd.Flags().Float64Var(&analyzeRiskPercent, "risk", 0, "percent of balance risked per trade")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print reports as JSON")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	return withApp(ctx, func(a *app.App, log *zap.Logger) error {
		interval := analyzeInterval
		if interval == "" {
			interval = a.Settings().Analysis.Interval
		}
		limit := analyzeLimit
		if limit == 0 {
			limit = a.Settings().Analysis.Limit
		}

		var failed int
		for _, symbol := range args {
			report, err := a.Pipeline().Analyze(ctx, pipeline.Request{
				Symbol:      symbol,
				Interval:    interval,
				Limit:       limit,
				Balance:     analyzeBalance,
				RiskPercent: analyzeRiskPercent,
			})
			if err != nil {
				failed++
				log.Error("analysis failed", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			if analyzeJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
				continue
			}
			printReport(cmd.OutOrStdout(), report)
		}
		if failed == len(args) {
			return fmt.Errorf("all %d analyses failed", failed)
		}
		return nil
	})
}

func printReport(out io.Writer, r *pipeline.Report) {
	d := r.Decision
	fmt.Fprintf(out, "=== %s %s ===\n", r.Symbol, r.Interval)
	fmt.Fprintf(out, "Price:      %.4f\n", r.Signal.CurrentPrice)
	if dl := r.Signal.Deltas; dl != nil {
		fmt.Fprintf(out, "24 bars:    %+.2f%% price", dl.PriceChange24h)
		if dl.VolumeChange24h != nil {
			fmt.Fprintf(out, ", %+.2f%% volume", *dl.VolumeChange24h)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Decision:   %s (score %.1f, confidence %.1f%%)\n", d.Action, d.Score, d.Confidence)
	fmt.Fprintf(out, "Risk:       %s decision, %s asset\n", d.RiskLevel, r.AssetRisk)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nINDICATOR\tVALUE\tFLAG\tBUY\tSELL")
	for _, name := range r.Signal.Order {
		ind := r.Signal.Indicators[name]
		if ind.Insufficient {
			fmt.Fprintf(w, "%s\t-\tinsufficient\t-\t-\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\t%.2f\t%.2f\n", name, ind.Value, ind.Flag, ind.BuyStrength, ind.SellStrength)
	}
	fmt.Fprintln(w, "\nCONTEXT\tLABEL\tBUY\tSELL")
	for _, c := range r.Context {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\n", c.Name, c.Label, c.BuyStrength, c.SellStrength)
	}
	_ = w.Flush()

	if len(d.Reasons) > 0 {
		fmt.Fprintf(out, "\nReasons:\n  - %s\n", strings.Join(d.Reasons, "\n  - "))
	}
	if len(d.Advice) > 0 {
		fmt.Fprintf(out, "Advice:\n  - %s\n", strings.Join(d.Advice, "\n  - "))
	}
	for name, msg := range r.Failures {
		fmt.Fprintf(out, "Skipped %s: %s\n", name, msg)
	}

	if p := r.Plan; p != nil {
		fmt.Fprintf(out, "\nPlan (%s from %.4f):\n", p.Direction, p.Entry)
		fmt.Fprintf(out, "  Stop:     %.4f tight / %.4f normal / %.4f wide (%s)\n",
			p.StopLoss.Tight, p.StopLoss.Normal, p.StopLoss.Wide, p.StopSource)
		fmt.Fprintf(out, "  Target:   %.4f / %.4f / %.4f\n",
			p.TakeProfit.Conservative, p.TakeProfit.Moderate, p.TakeProfit.Aggressive)
		fmt.Fprintf(out, "  R:R:      %.2f / %.2f / %.2f\n",
			p.RiskReward.Conservative, p.RiskReward.Moderate, p.RiskReward.Aggressive)
		fmt.Fprintf(out, "  Size:     %.2f (%.6f units), risking %.2f at %.2f%%\n",
			p.PositionSize, p.Units, p.RiskAmount, p.AdjustedRiskPercent)
		for _, tip := range p.Tips {
			fmt.Fprintf(out, "  * %s\n", tip)
		}
	}
	fmt.Fprintln(out)
}
