package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/cryptosignal/internal/pipeline"
)

// Result is one symbol's outcome within a tick. Exactly one of Report and
// Err is set.
type Result struct {
	Symbol   string
	Interval string
	Report   *pipeline.Report
	Err      error
}

// OK reports whether the symbol was analyzed.
func (r Result) OK() bool { return r.Err == nil && r.Report != nil }

type resultJSON struct {
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// MarshalJSON renders Err as its message.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Symbol: r.Symbol, Interval: r.Interval, Report: r.Report}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Batch is everything one tick produced.
type Batch struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Failed counts results carrying an error.
func (b Batch) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Sink consumes batches. A failing sink is logged and never stops the loop.
type Sink interface {
	Name() string
	Publish(ctx context.Context, b Batch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, b Batch) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Publish(ctx context.Context, b Batch) error { return s.Fn(ctx, b) }
