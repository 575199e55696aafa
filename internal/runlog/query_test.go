package runlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

func mkRun(id string, typ models.RunType, ts time.Time, method, score string) models.Run {
	return models.Run{
		PipelineRunID:   id,
		PipelineRunType: typ,
		Timestamp:       ts,
		Method:          method,
		Outcome:         models.OutcomeSuccess,
		Score:           score,
	}
}

func TestQueryExcludesEmbeddingRuns(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snapshot := []models.Run{
		mkRun("a", models.RunTypeSearch, base, models.MethodSearch, ""),
		mkRun("b", models.RunTypeEmbedding, base.Add(time.Minute), "Embed", ""),
		mkRun("c", models.RunTypeRAG, base.Add(2*time.Minute), models.MethodCompletion, ""),
	}

	res := Query(snapshot, Params{}, false)

	assert.Equal(t, 2, res.TotalItems)
	for _, r := range res.Records {
		assert.NotEqual(t, models.RunTypeEmbedding, r.PipelineRunType)
	}
}

func TestQueryScoreSortsNumerically(t *testing.T) {
	base := time.Now().UTC()
	snapshot := []models.Run{
		mkRun("a", models.RunTypeRAG, base, models.MethodCompletion, "9"),
		mkRun("b", models.RunTypeRAG, base, models.MethodCompletion, "10"),
		mkRun("c", models.RunTypeRAG, base, models.MethodCompletion, "2"),
	}

	res := Query(snapshot, Params{SortField: SortByScore, SortDir: SortAsc}, false)

	require.Len(t, res.Records, 3)
	assert.Equal(t, []string{"2", "9", "10"}, []string{
		res.Records[0].Score, res.Records[1].Score, res.Records[2].Score,
	})
}

func TestQuerySortIsStableForEqualKeys(t *testing.T) {
	base := time.Now().UTC()
	snapshot := []models.Run{
		mkRun("first", models.RunTypeSearch, base, models.MethodSearch, "5"),
		mkRun("second", models.RunTypeSearch, base, models.MethodSearch, "5"),
		mkRun("third", models.RunTypeSearch, base, models.MethodSearch, "5"),
	}

	res := Query(snapshot, Params{SortField: SortByScore, SortDir: SortAsc}, false)

	require.Len(t, res.Records, 3)
	assert.Equal(t, "first", res.Records[0].PipelineRunID)
	assert.Equal(t, "second", res.Records[1].PipelineRunID)
	assert.Equal(t, "third", res.Records[2].PipelineRunID)
}

func TestQueryFilterIsCaseInsensitiveAcrossFields(t *testing.T) {
	base := time.Now().UTC()
	snapshot := []models.Run{
		mkRun("a", models.RunTypeSearch, base, "Search", ""),
		mkRun("b", models.RunTypeRAG, base, "Generate Completion", ""),
	}

	res := Query(snapshot, Params{Filter: "SEARCH"}, false)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "a", res.Records[0].PipelineRunID)
}

func TestQueryPagination(t *testing.T) {
	base := time.Now().UTC()
	var snapshot []models.Run
	for i := 0; i < 25; i++ {
		snapshot = append(snapshot, mkRun(string(rune('a'+i)), models.RunTypeSearch,
			base.Add(time.Duration(i)*time.Second), models.MethodSearch, ""))
	}

	res := Query(snapshot, Params{Page: 3, PageSize: 10}, false)

	assert.Len(t, res.Records, 5)
	assert.Equal(t, 25, res.TotalItems)
	assert.Equal(t, 3, res.TotalPages)
}

// Legacy ordering: the page window is sliced before the text filter is
// applied, so the filter narrows the current page instead of re-paginating
// the whole set, and the totals ignore the filter.
func TestQueryLegacyFilterNarrowsPageWindow(t *testing.T) {
	base := time.Now().UTC()
	var snapshot []models.Run
	for i := 0; i < 20; i++ {
		method := models.MethodSearch
		if i >= 10 {
			method = models.MethodCompletion
		}
		// Ascending sort keeps input order: first ten are Search runs.
		snapshot = append(snapshot, mkRun(string(rune('a'+i)), models.RunTypeSearch,
			base.Add(time.Duration(i)*time.Second), method, ""))
	}

	p := Params{Filter: "generate", SortField: SortByTimestamp, SortDir: SortAsc, Page: 1, PageSize: 10}

	legacy := Query(snapshot, p, false)
	assert.Empty(t, legacy.Records, "page 1 holds only Search runs, filter empties it")
	assert.Equal(t, 20, legacy.TotalItems)
	assert.Equal(t, 2, legacy.TotalPages)

	corrected := Query(snapshot, p, true)
	assert.Len(t, corrected.Records, 10)
	assert.Equal(t, 10, corrected.TotalItems)
	assert.Equal(t, 1, corrected.TotalPages)
}

func TestQueryPastEndPageIsEmpty(t *testing.T) {
	base := time.Now().UTC()
	snapshot := []models.Run{mkRun("a", models.RunTypeSearch, base, models.MethodSearch, "")}

	res := Query(snapshot, Params{Page: 5}, false)

	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.TotalItems)
	assert.Equal(t, 1, res.TotalPages)
}

func TestQueryDoesNotMutateSnapshot(t *testing.T) {
	base := time.Now().UTC()
	snapshot := []models.Run{
		mkRun("b", models.RunTypeSearch, base.Add(time.Minute), models.MethodSearch, ""),
		mkRun("a", models.RunTypeSearch, base, models.MethodSearch, ""),
	}

	Query(snapshot, Params{SortField: SortByRunID, SortDir: SortAsc}, false)

	assert.Equal(t, "b", snapshot[0].PipelineRunID)
	assert.Equal(t, "a", snapshot[1].PipelineRunID)
}

func TestDisplayMethod(t *testing.T) {
	assert.Equal(t, "Completion", DisplayMethod(models.MethodCompletion))
	assert.Equal(t, "Search", DisplayMethod(models.MethodSearch))
	assert.Equal(t, "Custom Pipe", DisplayMethod("Custom Pipe"))
}

func TestEngineMemoizesSameVersionAndParams(t *testing.T) {
	base := time.Now().UTC()
	snapshot := []models.Run{mkRun("a", models.RunTypeSearch, base, models.MethodSearch, "")}

	e := NewEngine(false)
	first := e.Page(snapshot, 1, Params{})
	second := e.Page(snapshot, 1, Params{})
	assert.Equal(t, first, second)

	// A new version recomputes against the new snapshot.
	grown := append(snapshot, mkRun("b", models.RunTypeSearch, base, models.MethodSearch, ""))
	third := e.Page(grown, 2, Params{})
	assert.Equal(t, 2, third.TotalItems)
}
