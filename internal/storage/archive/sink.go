package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/monitor"
	"github.com/newthinker/cryptosignal/internal/pipeline"
)

const batchRoot = "batches"

// Record is an archived batch as read back from storage.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []RecordResult `json:"results"`
}

// RecordResult mirrors monitor.Result with the error flattened to text.
type RecordResult struct {
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Sink writes each batch as one JSON object keyed by day and batch ID.
type Sink struct {
	store  Storage
	logger *zap.Logger
}

// NewSink archives batches into store.
func NewSink(store Storage, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{store: store, logger: logger}
}

func (s *Sink) Name() string { return "archive" }

// Publish stores b. Empty batches are skipped.
func (s *Sink) Publish(ctx context.Context, b monitor.Batch) error {
	if len(b.Results) == 0 {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return core.Errorf(core.ErrSinkFailed, "archive: encode batch %s: %w", b.ID, err)
	}

	path := BatchPath(b.StartedAt, b.ID)
	if err := s.store.Write(ctx, path, data); err != nil {
		return core.Errorf(core.ErrSinkFailed, "archive: %w", err)
	}
	s.logger.Debug("batch archived", zap.String("path", path), zap.Int("results", len(b.Results)))
	return nil
}

// BatchPath is batches/YYYY/MM/DD/<HHMMSS>-<id>.json in UTC, so a lexical
// listing of a day is chronological.
func BatchPath(at time.Time, id uuid.UUID) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s-%s.json", dayPrefix(at), at.Format("150405"), id)
}

func dayPrefix(day time.Time) string {
	return batchRoot + "/" + day.UTC().Format("2006/01/02")
}

// List returns the archived batch paths for the UTC day containing day.
func (s *Sink) List(ctx context.Context, day time.Time) ([]string, error) {
	paths, err := s.store.List(ctx, dayPrefix(day))
	if err != nil {
		return nil, err
	}
	out := paths[:0]
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			out = append(out, p)
		}
	}
	return out, nil
}

// Load reads one archived batch.
func (s *Sink) Load(ctx context.Context, path string) (*Record, error) {
	data, err := s.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.Errorf(core.ErrMalformedData, "archive %s: %w", path, err)
	}
	return &rec, nil
}
