package runlog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// SortField is the closed set of columns the runs table can sort on.
// Dynamic field lookup is deliberately avoided: every field maps to an
// explicit accessor below.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByRunID     SortField = "pipeline_run_id"
	SortByRunType   SortField = "pipeline_run_type"
	SortByMethod    SortField = "method"
	SortByQuery     SortField = "search_query"
	SortByOutcome   SortField = "outcome"
	SortByScore     SortField = "score"
)

// SortDirection orders a sorted column ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortField validates a user-supplied sort field name.
func ParseSortField(s string) (SortField, bool) {
	switch SortField(s) {
	case SortByTimestamp, SortByRunID, SortByRunType, SortByMethod,
		SortByQuery, SortByOutcome, SortByScore:
		return SortField(s), true
	}
	return "", false
}

// ParseSortDirection validates a user-supplied sort direction. Anything but
// "asc" or "desc" yields the empty value, which normalizes to descending.
func ParseSortDirection(s string) SortDirection {
	switch SortDirection(s) {
	case SortAsc, SortDesc:
		return SortDirection(s)
	}
	return ""
}

// methodDisplayNames translates raw engine method names into the labels shown
// in the runs table. Unmapped methods display as their raw value.
var methodDisplayNames = map[string]string{
	models.MethodSearch:     "Search",
	models.MethodCompletion: "Completion",
	models.MethodEvaluate:   "Evaluation",
}

// DisplayMethod returns the display label for a raw method name.
func DisplayMethod(method string) string {
	if name, ok := methodDisplayNames[method]; ok {
		return name
	}
	return method
}

// less reports whether a sorts before b on the given field, ascending.
// Score compares numerically: a run without a parseable score sorts before
// any run with one.
func less(a, b *models.Run, field SortField) bool {
	switch field {
	case SortByTimestamp:
		return a.Timestamp.Before(b.Timestamp)
	case SortByRunID:
		return a.PipelineRunID < b.PipelineRunID
	case SortByRunType:
		return a.PipelineRunType < b.PipelineRunType
	case SortByMethod:
		return a.Method < b.Method
	case SortByQuery:
		return a.SearchQuery < b.SearchQuery
	case SortByOutcome:
		return a.Outcome < b.Outcome
	case SortByScore:
		av, aok := parseScore(a.Score)
		bv, bok := parseScore(b.Score)
		if aok != bok {
			return !aok
		}
		return av < bv
	default:
		return a.Timestamp.Before(b.Timestamp)
	}
}

func parseScore(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sortRuns stable-sorts runs in place on the given field and direction.
// Ties preserve relative input order.
func sortRuns(runs []models.Run, field SortField, dir SortDirection) {
	sort.SliceStable(runs, func(i, j int) bool {
		if dir == SortDesc {
			return less(&runs[j], &runs[i], field)
		}
		return less(&runs[i], &runs[j], field)
	})
}

// searchText renders every field of a run into one lowercase string used for
// substring filtering. A run matches a filter if any field's string form does.
func searchText(r *models.Run) string {
	var b strings.Builder
	b.WriteString(r.PipelineRunID)
	b.WriteByte(' ')
	b.WriteString(string(r.PipelineRunType))
	b.WriteByte(' ')
	b.WriteString(r.Timestamp.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(DisplayMethod(r.Method))
	b.WriteByte(' ')
	b.WriteString(r.SearchQuery)
	for _, sr := range r.SearchResults {
		b.WriteByte(' ')
		b.WriteString(sr.Text)
	}
	b.WriteByte(' ')
	b.WriteString(r.CompletionResult)
	b.WriteByte(' ')
	b.WriteString(r.Outcome)
	b.WriteByte(' ')
	b.WriteString(r.Score)
	for name, ev := range r.EvalResults {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(fmt.Sprintf("%g", ev.Score))
		b.WriteByte(' ')
		b.WriteString(ev.Reason)
	}
	return strings.ToLower(b.String())
}

// matches reports whether the run matches a case-insensitive substring filter.
// An empty filter matches everything.
func matches(r *models.Run, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(searchText(r), strings.ToLower(filter))
}
