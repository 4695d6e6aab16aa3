package report

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/monitor"
)

// MemoryStore is a bounded in-memory report store. It also implements
// monitor.Sink so the monitor can feed it directly.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	latest  map[string]Entry
	maxSize int
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize < 1 {
		maxSize = 1
	}
	return &MemoryStore{
		entries: make([]Entry, 0, maxSize),
		latest:  make(map[string]Entry),
		maxSize: maxSize,
	}
}

func key(symbol, interval string) string { return symbol + "/" + interval }

// Save adds an entry to the store.
func (m *MemoryStore) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.Report == nil {
		return Entry{}, core.Errorf(core.ErrInvalidInput, "report store: nil report")
	}
	e.ID = uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, e)
	// Trim if over capacity (remove oldest)
	if len(m.entries) > m.maxSize {
		m.entries = m.entries[len(m.entries)-m.maxSize:]
	}
	m.latest[key(e.Report.Symbol, e.Report.Interval)] = e

	return e, nil
}

func (m *MemoryStore) Name() string { return "reports" }

// Publish saves every successful report of the batch.
func (m *MemoryStore) Publish(ctx context.Context, b monitor.Batch) error {
	for _, r := range b.Results {
		if !r.OK() {
			continue
		}
		if _, err := m.Save(ctx, Entry{BatchID: b.ID, Report: r.Report}); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves an entry by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			e := m.entries[i]
			return &e, nil
		}
	}
	return nil, core.Errorf(core.ErrNotFound, "report %s", id)
}

// Latest returns the newest entry per symbol and interval, sorted by key.
// Latest entries survive history trimming.
func (m *MemoryStore) Latest(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.latest))
	for k := range m.latest {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = m.latest[k]
	}
	return out, nil
}

// Forget drops the latest entry for a symbol and interval, e.g. after it
// leaves the watchlist. An empty interval forgets every interval.
func (m *MemoryStore) Forget(symbol, interval string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.latest {
		if e.Report.Symbol == symbol && (interval == "" || e.Report.Interval == interval) {
			delete(m.latest, k)
		}
	}
}

// List returns entries matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if matches(m.entries[i], filter) {
			result = append(result, m.entries[i])
		}
	}

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []Entry{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching entries.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, e := range m.entries {
		if matches(e, filter) {
			count++
		}
	}
	return count, nil
}

func matches(e Entry, filter ListFilter) bool {
	r := e.Report
	if filter.Symbol != "" && r.Symbol != filter.Symbol {
		return false
	}
	if filter.Interval != "" && r.Interval != filter.Interval {
		return false
	}
	if filter.Action != "" && r.Decision.Action != filter.Action {
		return false
	}
	if !filter.From.IsZero() && r.GeneratedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && r.GeneratedAt.After(filter.To) {
		return false
	}
	return true
}
