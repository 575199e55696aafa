// Package api provides the client for the RAG cloud API: pipeline listing,
// deployment, the integration registry, and the run-log endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/models"
)

// Client is a cloud API client. It is shared across requests; the bearer
// token travels per call because the dashboard acts on behalf of many users.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new cloud API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListPipelines fetches the caller's pipelines.
func (c *Client) ListPipelines(ctx context.Context, token string) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	err := c.get(ctx, "/user_pipelines", token, &pipelines)
	return pipelines, err
}

// Deploy submits a pipeline deployment. Any 2xx response is success.
func (c *Client) Deploy(ctx context.Context, token string, req models.DeployRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding deploy request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deploy", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// ListIntegrations fetches the provider registry. The registry is public
// configuration, so no token is required.
func (c *Client) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	var integrations []models.Integration
	err := c.get(ctx, "/integrations", "", &integrations)
	return integrations, err
}

// GetLogRows fetches the raw run-log rows for the caller's pipelines.
func (c *Client) GetLogRows(ctx context.Context, token string) ([]models.LogRow, error) {
	var rows []models.LogRow
	err := c.get(ctx, "/logs", token, &rows)
	return rows, err
}

// get performs a GET request and unmarshals the response.
func (c *Client) get(ctx context.Context, path, token string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
