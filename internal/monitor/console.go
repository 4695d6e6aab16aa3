package monitor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// ConsoleSink writes one plain line per result.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (c *ConsoleSink) Name() string { return "console" }

func (c *ConsoleSink) Publish(_ context.Context, b Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := b.FinishedAt.UTC().Format(time.RFC3339)
	for _, r := range b.Results {
		var err error
		if r.Err != nil {
			_, err = fmt.Fprintf(c.w, "%s %-12s %-3s error: %v\n", stamp, r.Symbol, r.Interval, r.Err)
		} else {
			d := r.Report.Decision
			_, err = fmt.Fprintf(c.w, "%s %-12s %-3s %-11s score=%7.2f confidence=%5.1f%% risk=%-6s price=%g\n",
				stamp, r.Symbol, r.Interval, d.Action, d.Score, d.Confidence, d.RiskLevel, r.Report.Signal.CurrentPrice)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
