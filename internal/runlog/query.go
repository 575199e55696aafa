// Package runlog turns raw pipeline engine logs into the rows shown by the
// runs table: assembly of per-run records, category exclusion, stable
// sorting, substring filtering, and pagination.
package runlog

import (
	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// DefaultPageSize is the fixed number of rows per table page.
const DefaultPageSize = 10

// Params are the user-controlled query inputs. The zero value is valid:
// no filter, timestamp descending, first page, default page size.
type Params struct {
	Filter    string
	SortField SortField
	SortDir   SortDirection
	Page      int
	PageSize  int
}

// normalize fills in defaults for zero-valued params.
func (p Params) normalize() Params {
	if p.SortField == "" {
		p.SortField = SortByTimestamp
	}
	if p.SortDir == "" {
		p.SortDir = SortDesc
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Result is one rendered table page.
type Result struct {
	Records []models.Run `json:"records"`
	// TotalItems is the count pagination controls are computed from. In
	// legacy mode this is the size of the category-filtered set before text
	// filtering; in corrected mode it is the post-filter size.
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
	Page       int `json:"page"`
}

// Query computes the table page for the given snapshot and params. It is a
// pure function: the snapshot is never mutated and identical inputs produce
// identical output.
//
// The default (legacy) evaluation order slices the page window from the
// sorted, category-filtered set and only then applies the text filter inside
// that window, so filtering narrows the visible page rather than
// re-paginating the whole set. The pagination totals likewise ignore the
// text filter. This matches the behavior the dashboard has always had; pass
// filterBeforePaginate to get the conventional filter-then-paginate order.
func Query(snapshot []models.Run, p Params, filterBeforePaginate bool) Result {
	p = p.normalize()

	// Embedding runs never reach the table or its totals.
	qualified := make([]models.Run, 0, len(snapshot))
	for _, r := range snapshot {
		if r.PipelineRunType == models.RunTypeEmbedding {
			continue
		}
		qualified = append(qualified, r)
	}

	sortRuns(qualified, p.SortField, p.SortDir)

	if filterBeforePaginate {
		filtered := qualified[:0:0]
		for _, r := range qualified {
			if matches(&r, p.Filter) {
				filtered = append(filtered, r)
			}
		}
		window := pageWindow(filtered, p.Page, p.PageSize)
		return Result{
			Records:    window,
			TotalItems: len(filtered),
			TotalPages: pageCount(len(filtered), p.PageSize),
			Page:       p.Page,
		}
	}

	window := pageWindow(qualified, p.Page, p.PageSize)
	records := make([]models.Run, 0, len(window))
	for _, r := range window {
		if matches(&r, p.Filter) {
			records = append(records, r)
		}
	}
	return Result{
		Records:    records,
		TotalItems: len(qualified),
		TotalPages: pageCount(len(qualified), p.PageSize),
		Page:       p.Page,
	}
}

// pageWindow returns the 1-based page slice of runs. Pages past the end are
// empty.
func pageWindow(runs []models.Run, page, size int) []models.Run {
	start := (page - 1) * size
	if start >= len(runs) {
		return nil
	}
	end := start + size
	if end > len(runs) {
		end = len(runs)
	}
	return runs[start:end]
}

func pageCount(items, size int) int {
	if items == 0 {
		return 0
	}
	return (items + size - 1) / size
}
