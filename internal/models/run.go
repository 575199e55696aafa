package models

import "time"

// RunType categorizes a pipeline run.
type RunType string

const (
	// RunTypeSearch is a retrieval-only run.
	RunTypeSearch RunType = "search"
	// RunTypeRAG is a retrieval plus completion run.
	RunTypeRAG RunType = "rag"
	// RunTypeEmbedding is an ingest-side embedding run. Embedding runs are
	// excluded from the runs view entirely.
	RunTypeEmbedding RunType = "embedding"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Raw method names recorded by the pipeline engine.
const (
	MethodSearch     = "Search"
	MethodCompletion = "Generate Completion"
	MethodEvaluate   = "Evaluate"
)

// SearchResult is a single retrieved chunk within a search run.
type SearchResult struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Score    float64        `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EvalResult holds one evaluator's verdict for a run.
type EvalResult struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// Run represents one observed pipeline run event as shown in the logs view.
type Run struct {
	PipelineRunID    string                `json:"pipeline_run_id"`
	PipelineRunType  RunType               `json:"pipeline_run_type"`
	Timestamp        time.Time             `json:"timestamp"`
	Method           string                `json:"method"`
	SearchQuery      string                `json:"search_query,omitempty"`
	SearchResults    []SearchResult        `json:"search_results,omitempty"`
	CompletionResult string                `json:"completion_result,omitempty"`
	Outcome          string                `json:"outcome"`
	Score            string                `json:"score,omitempty"`
	EvalResults      map[string]EvalResult `json:"eval_results,omitempty"`
}

// LogRow is a raw log entry as recorded by the pipeline engine. Several rows
// with the same PipelineRunID make up one Run.
type LogRow struct {
	Timestamp       time.Time `json:"timestamp"`
	PipelineRunID   string    `json:"pipeline_run_id"`
	PipelineRunType RunType   `json:"pipeline_run_type"`
	Method          string    `json:"method"`
	Result          string    `json:"result"`
	LogLevel        string    `json:"log_level"`
}
