package runlog

import (
	"sync"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// Engine evaluates table queries against versioned snapshots, memoizing the
// most recent (snapshot version, params) pair so repeated renders of an
// unchanged view do not recompute the page.
type Engine struct {
	// FilterBeforePaginate switches the engine to the corrected
	// filter-then-paginate order. Off by default for backward-compatible
	// page numbering.
	filterBeforePaginate bool

	mu      sync.Mutex
	haveKey bool
	key     memoKey
	result  Result
}

type memoKey struct {
	version uint64
	params  Params
}

// NewEngine creates a query engine. filterBeforePaginate selects the
// corrected evaluation order described on Query.
func NewEngine(filterBeforePaginate bool) *Engine {
	return &Engine{filterBeforePaginate: filterBeforePaginate}
}

// Page computes (or returns the memoized) table page for the snapshot
// identified by version. Callers must pass a new version whenever the
// snapshot contents change.
func (e *Engine) Page(snapshot []models.Run, version uint64, p Params) Result {
	p = p.normalize()
	k := memoKey{version: version, params: p}

	e.mu.Lock()
	if e.haveKey && e.key == k {
		r := e.result
		e.mu.Unlock()
		return r
	}
	e.mu.Unlock()

	r := Query(snapshot, p, e.filterBeforePaginate)

	e.mu.Lock()
	e.key = k
	e.result = r
	e.haveKey = true
	e.mu.Unlock()

	return r
}
