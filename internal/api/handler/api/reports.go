package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/cryptosignal/internal/api/response"
	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/storage/report"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ReportsHandler serves stored analysis reports.
type ReportsHandler struct {
	store report.Store
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(store report.Store) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// Latest returns the newest report per symbol and interval.
func (h *ReportsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Latest(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, entries)
}

// History lists stored reports, newest first.
func (h *ReportsHandler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, entries)
}

// Get returns one stored report by ID.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, entry)
}

func parseFilter(r *http.Request) (report.ListFilter, error) {
	q := r.URL.Query()
	filter := report.ListFilter{
		Interval: q.Get("interval"),
		Limit:    defaultHistoryLimit,
	}

	if s := q.Get("symbol"); s != "" {
		filter.Symbol = collector.NormalizeSymbol(s, collector.DefaultQuote)
	}
	if a := q.Get("action"); a != "" {
		filter.Action = core.Action(strings.ToUpper(a))
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, err
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, core.Errorf(core.ErrInvalidInput, "limit must be a positive integer")
		}
		filter.Limit = min(n, maxHistoryLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, core.Errorf(core.ErrInvalidInput, "offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

// parseTime accepts RFC 3339 or a bare date.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, core.Errorf(core.ErrInvalidInput, "bad time %q", v)
	}
	return t, nil
}
