// Package api implements the JSON handlers behind /api.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/newthinker/cryptosignal/internal/api/response"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/monitor"
)

// WatchlistService is the watchlist surface the handler needs.
// *monitor.Monitor satisfies it; the app wraps it to persist changes.
type WatchlistService interface {
	Watchlist() []monitor.Item
	Add(symbol, interval string) (monitor.Item, bool, error)
	Remove(symbol, interval string) bool
}

// WatchlistHandler handles watchlist API requests.
type WatchlistHandler struct {
	svc WatchlistService
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(svc WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{svc: svc}
}

// AddRequest is the request body for adding a symbol.
type AddRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval,omitempty"`
}

// List returns every watched symbol and interval.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	response.List(w, h.svc.Watchlist())
}

// Add adds a symbol. An omitted interval means 1h.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
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

	item, added, err := h.svc.Add(req.Symbol, req.Interval)
	if err != nil {
		response.Fail(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	response.JSON(w, status, map[string]any{
		"symbol":   item.Symbol,
		"interval": item.Interval,
		"added":    added,
	})
}

// Remove drops a symbol. The optional interval query limits removal to one
// interval.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	interval := r.URL.Query().Get("interval")

	if !h.svc.Remove(symbol, interval) {
		response.Fail(w, core.Errorf(core.ErrNotFound, "%s is not watched", symbol))
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"removed": true,
	})
}
