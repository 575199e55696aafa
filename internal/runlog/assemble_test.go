package runlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

func TestAssembleGroupsRowsByRun(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.LogRow{
		{
			Timestamp:       base,
			PipelineRunID:   "run-1",
			PipelineRunType: models.RunTypeRAG,
			Method:          models.MethodSearch,
			Result:          `{"query":"what is a vector db","results":[{"text":"a database for embeddings"}]}`,
			LogLevel:        "INFO",
		},
		{
			Timestamp:       base.Add(2 * time.Second),
			PipelineRunID:   "run-1",
			PipelineRunType: models.RunTypeRAG,
			Method:          models.MethodCompletion,
			Result:          "A vector database stores embeddings.",
			LogLevel:        "INFO",
		},
		{
			Timestamp:       base.Add(3 * time.Second),
			PipelineRunID:   "run-1",
			PipelineRunType: models.RunTypeRAG,
			Method:          models.MethodEvaluate,
			Result:          `{"relevance":{"score":1,"reason":"on topic"},"faithfulness":{"score":0.5}}`,
			LogLevel:        "INFO",
		},
		{
			Timestamp:       base.Add(time.Minute),
			PipelineRunID:   "run-2",
			PipelineRunType: models.RunTypeSearch,
			Method:          models.MethodSearch,
			Result:          `{"query":"chunk overlap"}`,
			LogLevel:        "INFO",
		},
	}

	runs := Assemble(rows)
	require.Len(t, runs, 2)

	rag := runs[0]
	assert.Equal(t, "run-1", rag.PipelineRunID)
	assert.Equal(t, base, rag.Timestamp)
	assert.Equal(t, models.MethodCompletion, rag.Method)
	assert.Equal(t, "what is a vector db", rag.SearchQuery)
	require.Len(t, rag.SearchResults, 1)
	assert.Equal(t, "a database for embeddings", rag.SearchResults[0].Text)
	assert.Equal(t, "A vector database stores embeddings.", rag.CompletionResult)
	assert.Equal(t, models.OutcomeSuccess, rag.Outcome)
	assert.Equal(t, "0.75", rag.Score)
	require.Len(t, rag.EvalResults, 2)
	assert.Equal(t, "on topic", rag.EvalResults["relevance"].Reason)

	search := runs[1]
	assert.Equal(t, "chunk overlap", search.SearchQuery)
	assert.Empty(t, search.Score)
}

func TestAssembleErrorRowFailsTheRun(t *testing.T) {
	base := time.Now().UTC()
	rows := []models.LogRow{
		{Timestamp: base, PipelineRunID: "r", PipelineRunType: models.RunTypeRAG,
			Method: models.MethodSearch, Result: `{"query":"q"}`, LogLevel: "INFO"},
		{Timestamp: base.Add(time.Second), PipelineRunID: "r", PipelineRunType: models.RunTypeRAG,
			Method: models.MethodCompletion, Result: "timeout", LogLevel: "ERROR"},
	}

	runs := Assemble(rows)
	require.Len(t, runs, 1)
	assert.Equal(t, models.OutcomeFailure, runs[0].Outcome)
	// Score is only present on successful runs.
	assert.Empty(t, runs[0].Score)
}

func TestAssembleBareQueryFallback(t *testing.T) {
	rows := []models.LogRow{
		{Timestamp: time.Now().UTC(), PipelineRunID: "r", PipelineRunType: models.RunTypeSearch,
			Method: models.MethodSearch, Result: "plain text query", LogLevel: "INFO"},
	}

	runs := Assemble(rows)
	require.Len(t, runs, 1)
	assert.Equal(t, "plain text query", runs[0].SearchQuery)
}
