// Package poller drives periodic run-log refetches while the log view is
// active.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the refresh cadence of the runs view.
const DefaultInterval = 5 * time.Second

// Refetcher is the subset of the fetcher the poller drives.
type Refetcher interface {
	Refetch(ctx context.Context) error
}

// Poller invokes Refetch on a fixed interval while at least one view holds a
// reference. The loop is deliberately not error-aware: a failed tick leaves
// stale data on screen until the next one.
type Poller struct {
	target   Refetcher
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Poller. A non-positive interval falls back to
// DefaultInterval.
func New(target Refetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		target:   target,
		interval: interval,
		logger:   logger,
	}
}

// Acquire registers an active view. The first reference starts the tick
// loop.
func (p *Poller) Acquire() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refs++
	if p.refs > 1 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	p.logger.Debug("poller started", "interval", p.interval)
}

// Release drops a view reference. When the last reference is gone the timer
// is cancelled; any in-flight refetch is abandoned via context cancellation
// and its late result is never applied.
func (p *Poller) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refs == 0 {
		return
	}
	p.refs--
	if p.refs > 0 {
		return
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	p.logger.Debug("poller stopped")
}

// Active reports whether the tick loop is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refs > 0
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Synchronous by construction: two refetches from this loop
			// can never overlap.
			if err := p.target.Refetch(ctx); err != nil {
				p.logger.Debug("periodic refetch failed", "error", err)
			}
		}
	}
}
