package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/api/response"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/monitor"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

const analyzeTimeout = 30 * time.Second

// Analyzer runs one on-demand analysis. *pipeline.Pipeline satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

// Ticker runs one monitor pass. *monitor.Monitor satisfies it.
type Ticker interface {
	Tick(ctx context.Context) monitor.Batch
}

// AnalysisHandler handles on-demand analysis requests.
type AnalysisHandler struct {
	analyzer Analyzer
	ticker   Ticker
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler. ticker may be nil when
// no monitor runs.
func NewAnalysisHandler(analyzer Analyzer, ticker Ticker, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{analyzer: analyzer, ticker: ticker, logger: logger}
}

// Analyze handles GET /api/analyze/{symbol}?interval=&limit=&balance=&risk_percent=
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := pipeline.Request{
		Symbol:   r.PathValue("symbol"),
		Interval: q.Get("interval"),
	}
	if req.Interval == "" {
		req.Interval = "1h"
	}

	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		response.Fail(w, err)
		return
	}
	if req.Balance, err = floatParam(q.Get("balance")); err != nil {
		response.Fail(w, err)
		return
	}
	if req.RiskPercent, err = floatParam(q.Get("risk_percent")); err != nil {
		response.Fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	report, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// Trigger starts a monitor pass in the background.
func (h *AnalysisHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.ticker == nil {
		response.Fail(w, core.Errorf(core.ErrConfigMissing, "no monitor is running"))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		b := h.ticker.Tick(ctx)
		h.logger.Info("triggered tick finished",
			zap.String("batch_id", b.ID.String()),
			zap.Int("results", len(b.Results)),
			zap.Int("failed", b.Failed()),
		)
	}()

	response.JSON(w, http.StatusAccepted, map[string]any{"triggered": true})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, core.Errorf(core.ErrInvalidInput, "bad integer %q", v)
	}
	return n, nil
}

func floatParam(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, core.Errorf(core.ErrInvalidInput, "bad number %q", v)
	}
	return f, nil
}
