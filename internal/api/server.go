// Package api serves the status and control HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/cryptosignal/internal/api/handler/api"
	"github.com/newthinker/cryptosignal/internal/api/job"
	"github.com/newthinker/cryptosignal/internal/api/middleware"
	"github.com/newthinker/cryptosignal/internal/api/response"
	"github.com/newthinker/cryptosignal/internal/metrics"
	"github.com/newthinker/cryptosignal/internal/storage/report"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	handler    http.Handler
	started    time.Time
}

// Config holds server configuration
type Config struct {
	Addr   string
	APIKey string
}

// Dependencies are the services the routes call into. Nil Watchlist,
// Ticker or Backtester disable their routes.
type Dependencies struct {
	Reports    report.Store
	Analyzer   handler.Analyzer
	Watchlist  handler.WatchlistService
	Ticker     handler.Ticker
	Backtester handler.BacktestRunner
	Metrics    *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Reports == nil || deps.Analyzer == nil {
		return nil, errors.New("api: reports store and analyzer are required")
	}

	s := &Server{logger: logger, started: time.Now()}
	mux := s.routes(cfg, deps)

	var h http.Handler = mux
	h = metrics.HTTPMiddleware(deps.Metrics)(h)
	h = metrics.LoggingMiddleware(logger)(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(cfg Config, deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.APIKeyAuth(cfg.APIKey)
	protect := func(f http.HandlerFunc) http.Handler { return auth(f) }

	mux.HandleFunc("GET /api/health", s.handleHealth)

	reports := handler.NewReportsHandler(deps.Reports)
	mux.HandleFunc("GET /api/reports", reports.Latest)
	mux.HandleFunc("GET /api/reports/history", reports.History)
	mux.HandleFunc("GET /api/reports/{id}", reports.Get)

	analysis := handler.NewAnalysisHandler(deps.Analyzer, deps.Ticker, s.logger)
	mux.HandleFunc("GET /api/analyze/{symbol}", analysis.Analyze)
	if deps.Ticker != nil {
		mux.Handle("POST /api/analyze", protect(analysis.Trigger))
	}

	if deps.Watchlist != nil {
		watchlist := handler.NewWatchlistHandler(deps.Watchlist)
		mux.HandleFunc("GET /api/watchlist", watchlist.List)
		mux.Handle("POST /api/watchlist", protect(watchlist.Add))
		mux.Handle("DELETE /api/watchlist/{symbol}", protect(watchlist.Remove))
	}

	if deps.Backtester != nil {
		backtests := handler.NewBacktestHandler(job.NewStore(100, time.Hour), deps.Backtester, s.logger)
		mux.HandleFunc("GET /api/backtests", backtests.List)
		mux.HandleFunc("GET /api/backtests/{id}", backtests.Get)
		mux.Handle("POST /api/backtests", protect(backtests.Create))
	}

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{Registry: deps.Metrics}))
	}

	return mux
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}
