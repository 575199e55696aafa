// Package fetcher owns the run-log snapshot for the dashboard. It retrieves
// records from a pluggable source, replaces the snapshot atomically, and
// guards against out-of-order responses.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// Source retrieves the full run-record snapshot from wherever the logs live.
type Source interface {
	// FetchRuns returns a full-replacement snapshot of run records.
	FetchRuns(ctx context.Context) ([]models.Run, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]models.Run, error)

// FetchRuns implements Source.
func (f SourceFunc) FetchRuns(ctx context.Context) ([]models.Run, error) {
	return f(ctx)
}

// State is the fetch state exposed alongside the snapshot.
type State struct {
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// Fetcher holds the current snapshot of run records. The snapshot is
// exclusively owned here and handed out read-only: consumers must not mutate
// the returned slice.
type Fetcher struct {
	source Source
	logger *slog.Logger

	mu          sync.RWMutex
	snapshot    []models.Run
	version     uint64
	loading     int // in-flight refetch count
	lastErr     error
	lastUpdated time.Time

	// issued and applied order refetches so a late response can never
	// overwrite a newer snapshot, and a response completing after the view
	// is gone is simply never applied.
	issued  uint64
	applied uint64
}

// New creates a Fetcher over the given source.
func New(source Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, logger: logger}
}

// Refetch re-issues retrieval and atomically replaces the snapshot on
// success. On failure the last successful snapshot is deliberately preserved
// so a transient error never blanks the table; only the error state changes.
// A response that arrives after a newer refetch has been applied is
// discarded.
func (f *Fetcher) Refetch(ctx context.Context) error {
	f.mu.Lock()
	f.issued++
	token := f.issued
	f.loading++
	f.mu.Unlock()

	runs, err := f.source.FetchRuns(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading--

	if token <= f.applied {
		// A newer refetch already landed; this result is stale.
		f.logger.Debug("discarding stale refetch result", "token", token, "applied", f.applied)
		return nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The caller tore the request down (poller stop, connection gone).
			// That is a discard, not a source failure, so the exposed state
			// stays whatever the last real fetch left it.
			f.logger.Debug("refetch cancelled", "token", token)
			return err
		}
		f.lastErr = err
		f.logger.Warn("run log refetch failed", "error", err)
		return err
	}

	f.applied = token
	f.snapshot = runs
	f.version++
	f.lastErr = nil
	f.lastUpdated = time.Now()
	return nil
}

// Snapshot returns the current records together with a version that changes
// whenever the contents do. The slice must be treated as immutable.
func (f *Fetcher) Snapshot() ([]models.Run, uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot, f.version
}

// State reports the current loading and error state.
func (f *Fetcher) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st := State{
		Loading:     f.loading > 0,
		LastUpdated: f.lastUpdated,
	}
	if f.lastErr != nil {
		st.Error = f.lastErr.Error()
	}
	return st
}
