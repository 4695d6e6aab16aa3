package alert

import (
	"errors"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/monitor"
)

// Batch metric names.
const (
	MetricResults         = "results"
	MetricFailed          = "failed"
	MetricFailedPct       = "failed_pct"
	MetricDataErrors      = "data_errors"
	MetricInFlight        = "in_flight"
	MetricActionable      = "actionable"
	MetricDurationSeconds = "duration_seconds"
)

var metricNames = map[string]struct{}{
	MetricResults:         {},
	MetricFailed:          {},
	MetricFailedPct:       {},
	MetricDataErrors:      {},
	MetricInFlight:        {},
	MetricActionable:      {},
	MetricDurationSeconds: {},
}

// BatchMetrics summarises a batch for rule evaluation. failed_pct is 0 for
// an empty batch.
func BatchMetrics(b monitor.Batch) map[string]float64 {
	var failed, dataErrs, inFlight, actionable float64
	for _, r := range b.Results {
		switch {
		case r.Err != nil:
			failed++
			if core.IsDataError(r.Err) {
				dataErrs++
			}
			if errors.Is(r.Err, core.ErrInFlight) {
				inFlight++
			}
		case r.Report != nil && r.Report.Actionable():
			actionable++
		}
	}

	total := float64(len(b.Results))
	pct := 0.0
	if total > 0 {
		pct = failed / total * 100
	}
	return map[string]float64{
		MetricResults:         total,
		MetricFailed:          failed,
		MetricFailedPct:       pct,
		MetricDataErrors:      dataErrs,
		MetricInFlight:        inFlight,
		MetricActionable:      actionable,
		MetricDurationSeconds: b.FinishedAt.Sub(b.StartedAt).Seconds(),
	}
}
