package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/api/job"
	"github.com/newthinker/cryptosignal/internal/api/response"
	"github.com/newthinker/cryptosignal/internal/backtest"
	"github.com/newthinker/cryptosignal/internal/core"
)

const backtestTimeout = 5 * time.Minute

// BacktestRunner replays a symbol. *backtest.Backtester satisfies it.
type BacktestRunner interface {
	RunSymbol(ctx context.Context, symbol, interval string, limit int) (*backtest.Result, error)
}

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobs   *job.Store
	runner BacktestRunner
	logger *zap.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(jobs *job.Store, runner BacktestRunner, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{jobs: jobs, runner: runner, logger: logger}
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, err))
		return
	}
	if req.Symbol == "" {
		response.Fail(w, core.Errorf(core.ErrInvalidInput, "symbol is required"))
		return
	}
	if req.Interval == "" {
		req.Interval = "1h"
	}
	if req.Limit < 0 {
		response.Fail(w, core.Errorf(core.ErrInvalidInput, "limit must not be negative"))
		return
	}

	j := h.jobs.Create("backtest")
	go h.run(j.ID, req)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

func (h *BacktestHandler) run(jobID string, req BacktestRequest) {
	_ = h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()
	result, err := h.runner.RunSymbol(ctx, req.Symbol, req.Interval, req.Limit)

	if err != nil {
		h.logger.Warn("backtest failed",
			zap.String("job_id", jobID),
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)
		_ = h.jobs.Update(jobID, func(j *job.Job) { j.Fail(err) })
		return
	}

	_ = h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = result
	})
}

// Get returns the status of a backtest job, with its result once complete.
func (h *BacktestHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// List returns every live job.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	response.List(w, h.jobs.List())
}
