// Package report keeps recent analysis reports for the status API.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

// Entry is one stored report.
type Entry struct {
	ID      string           `json:"id"`
	BatchID uuid.UUID        `json:"batch_id"`
	Report  *pipeline.Report `json:"report"`
}

// Store defines the interface for report persistence.
type Store interface {
	// Save persists an entry and assigns its ID.
	Save(ctx context.Context, e Entry) (Entry, error)

	// GetByID retrieves an entry by its ID.
	GetByID(ctx context.Context, id string) (*Entry, error)

	// Latest returns the newest entry per symbol and interval.
	Latest(ctx context.Context) ([]Entry, error)

	// List retrieves entries matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Entry, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing entries.
type ListFilter struct {
	Symbol   string
	Interval string
	Action   core.Action
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
