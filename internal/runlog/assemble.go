package runlog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// searchPayload is the JSON body the engine records for a Search event.
type searchPayload struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
}

// Assemble groups raw engine log rows by pipeline run and derives one Run
// record per group. Rows are expected in timestamp order; within a run the
// earliest row's timestamp becomes the run timestamp. Runs come out in
// first-seen order.
func Assemble(rows []models.LogRow) []models.Run {
	byRun := make(map[string]*models.Run)
	order := make([]string, 0, len(rows))
	failed := make(map[string]bool)

	for _, row := range rows {
		run, ok := byRun[row.PipelineRunID]
		if !ok {
			run = &models.Run{
				PipelineRunID:   row.PipelineRunID,
				PipelineRunType: row.PipelineRunType,
				Timestamp:       row.Timestamp,
			}
			byRun[row.PipelineRunID] = run
			order = append(order, row.PipelineRunID)
		}
		if row.Timestamp.Before(run.Timestamp) {
			run.Timestamp = row.Timestamp
		}
		if strings.EqualFold(row.LogLevel, "error") {
			failed[row.PipelineRunID] = true
		}

		switch row.Method {
		case models.MethodSearch:
			run.Method = row.Method
			var payload searchPayload
			if err := json.Unmarshal([]byte(row.Result), &payload); err == nil {
				run.SearchQuery = payload.Query
				run.SearchResults = payload.Results
			} else {
				// Older engines logged the bare query string.
				run.SearchQuery = row.Result
			}
		case models.MethodCompletion:
			run.Method = row.Method
			run.CompletionResult = row.Result
		case models.MethodEvaluate:
			var evals map[string]models.EvalResult
			if err := json.Unmarshal([]byte(row.Result), &evals); err == nil {
				if run.EvalResults == nil {
					run.EvalResults = make(map[string]models.EvalResult, len(evals))
				}
				for name, ev := range evals {
					run.EvalResults[name] = ev
				}
			}
		default:
			if run.Method == "" {
				run.Method = row.Method
			}
		}
	}

	runs := make([]models.Run, 0, len(order))
	for _, id := range order {
		run := byRun[id]
		if failed[id] {
			run.Outcome = models.OutcomeFailure
		} else {
			run.Outcome = models.OutcomeSuccess
			run.Score = meanEvalScore(run.EvalResults)
		}
		runs = append(runs, *run)
	}
	return runs
}

// meanEvalScore formats the mean of all evaluator scores, or "" when the run
// has no evaluations. Scores are carried as strings and parsed back to
// float64 only at sort time.
func meanEvalScore(evals map[string]models.EvalResult) string {
	if len(evals) == 0 {
		return ""
	}
	var sum float64
	for _, ev := range evals {
		sum += ev.Score
	}
	return strconv.FormatFloat(sum/float64(len(evals)), 'f', -1, 64)
}
