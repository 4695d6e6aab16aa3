// Package metrics exposes the engine's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "cryptosignal"

// Analysis outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Registry holds all Prometheus metrics. Recording methods are no-ops on a
// nil *Registry so components can treat metrics as optional.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Engine metrics
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	decisionsTotal   *prometheus.CounterVec
	ticksTotal       prometheus.Counter
	tickDuration     prometheus.Histogram
	watchlistSymbols prometheus.Gauge
	sinkErrors       *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Per-symbol analyses by outcome",
		},
		[]string{"result"},
	)
	r.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Per-symbol analysis duration in seconds, fetch included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"symbol"},
	)
	r.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions produced by action",
		},
		[]string{"action"},
	)
	r.ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of monitoring ticks completed",
		},
	)
	r.tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Monitoring tick duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
	r.watchlistSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchlist_symbols",
			Help:      "Number of tracked symbol/interval pairs",
		},
	)
	r.sinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed batch publications by sink",
		},
		[]string{"sink"},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Decision notifications by notifier and status",
		},
		[]string{"notifier", "status"},
	)
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtests_total",
			Help:      "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Backtest duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	reg.MustRegister(r.analysesTotal)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.decisionsTotal)
	reg.MustRegister(r.ticksTotal)
	reg.MustRegister(r.tickDuration)
	reg.MustRegister(r.watchlistSymbols)
	reg.MustRegister(r.sinkErrors)
	reg.MustRegister(r.notifications)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r != nil {
		r.httpRequestsInFlight.Inc()
	}
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r != nil {
		r.httpRequestsInFlight.Dec()
	}
}

// RecordAnalysis records one symbol's analysis.
func (r *Registry) RecordAnalysis(symbol string, ok bool, duration float64) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultFailure
	}
	r.analysesTotal.WithLabelValues(result).Inc()
	r.analysisDuration.WithLabelValues(symbol).Observe(duration)
}

// RecordDecision counts a decision by action.
func (r *Registry) RecordDecision(action string) {
	if r != nil {
		r.decisionsTotal.WithLabelValues(action).Inc()
	}
}

// RecordTick records a monitoring tick completion.
func (r *Registry) RecordTick(duration float64) {
	if r == nil {
		return
	}
	r.ticksTotal.Inc()
	r.tickDuration.Observe(duration)
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	if r != nil {
		r.watchlistSymbols.Set(float64(size))
	}
}

// RecordSinkError counts a failed batch publication.
func (r *Registry) RecordSinkError(sink string) {
	if r != nil {
		r.sinkErrors.WithLabelValues(sink).Inc()
	}
}

// RecordNotification records a routed notification.
func (r *Registry) RecordNotification(notifier, status string) {
	if r != nil {
		r.notifications.WithLabelValues(notifier, status).Inc()
	}
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	if r == nil {
		return
	}
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
