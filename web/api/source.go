package api

import (
	"context"

	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/internal/runlog"
)

// RunSource adapts the cloud API log endpoint to the fetcher's Source
// interface. Retrieval uses a service token configured at startup; the cloud
// API scopes the returned rows to that token's pipelines.
type RunSource struct {
	client *Client
	token  string
}

// NewRunSource creates a run-record source backed by the cloud API.
func NewRunSource(client *Client, token string) *RunSource {
	return &RunSource{client: client, token: token}
}

// FetchRuns retrieves the raw log rows and assembles them into run records.
func (s *RunSource) FetchRuns(ctx context.Context) ([]models.Run, error) {
	rows, err := s.client.GetLogRows(ctx, s.token)
	if err != nil {
		return nil, err
	}
	return runlog.Assemble(rows), nil
}
