package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/pipeline-dashboard/internal/auth"
	"github.com/raglabs/pipeline-dashboard/internal/fetcher"
	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/internal/secrets"
	"github.com/raglabs/pipeline-dashboard/pkg/config"
	"github.com/raglabs/pipeline-dashboard/web/api"
)

const testJWTSecret = "test-secret-at-least-32-bytes-long!!"

type fixture struct {
	server   *httptest.Server
	upstream *httptest.Server
	token    string
}

// newFixture stands up the dashboard router against a fake cloud API.
func newFixture(t *testing.T, upstream http.HandlerFunc, runs []models.Run, cfgEdits ...func(*config.Config)) *fixture {
	t.Helper()

	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	recipient, identity, err := secrets.GenerateKeyPair()
	require.NoError(t, err)

	cfg := config.LoadWithDefaults()
	cfg.JWTSecret = testJWTSecret
	cfg.CloudAPIURL = up.URL
	cfg.Drafts.Dir = t.TempDir()
	cfg.Drafts.AgeRecipientKey = recipient
	cfg.Drafts.AgeIdentityKey = identity
	for _, edit := range cfgEdits {
		edit(cfg)
	}

	authSvc := auth.NewService(&auth.Config{
		JWTSecret:   []byte(testJWTSecret),
		TokenExpiry: time.Hour,
	}, nil)
	token, err := authSvc.GenerateToken("alice", "alice@acme.io")
	require.NoError(t, err)

	f := fetcher.New(fetcher.SourceFunc(func(ctx context.Context) ([]models.Run, error) {
		return runs, nil
	}), nil)
	require.NoError(t, f.Refetch(context.Background()))

	srv := New(cfg, Deps{
		Client:  api.NewClient(up.URL),
		Fetcher: f,
		Auth:    authSvc,
	}, nil)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &fixture{server: ts, upstream: up, token: token}
}

func (f *fixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func sampleRuns(n int) []models.Run {
	runs := make([]models.Run, 0, n)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		runs = append(runs, models.Run{
			PipelineRunID:   string(rune('a' + i%26)),
			PipelineRunType: models.RunTypeSearch,
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			Method:          models.MethodSearch,
			Outcome:         models.OutcomeSuccess,
		})
	}
	return runs
}

func TestPipelinesRequireBearer(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Pipeline{})
	}, nil)

	resp := f.request(t, http.MethodGet, "/user_pipelines", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	payload := decodeError(t, resp)
	assert.Equal(t, "Missing authentication", payload["message"])
}

func TestPipelinesProxyForwardsBearer(t *testing.T) {
	var gotAuth string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]models.Pipeline{{ID: "p1", Name: "qa"}})
	}, nil)

	resp := f.request(t, http.MethodGet, "/user_pipelines", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer "+f.token, gotAuth)

	defer resp.Body.Close()
	var pipelines []models.Pipeline
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pipelines))
	require.Len(t, pipelines, 1)
	assert.Equal(t, "qa", pipelines[0].Name)
}

func TestPipelinesUpstreamFailureIsGeneric400(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"internal database meltdown"}`, http.StatusInternalServerError)
	}, nil)

	resp := f.request(t, http.MethodGet, "/user_pipelines", f.token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload := decodeError(t, resp)
	assert.Equal(t, "Could not fetch pipelines", payload["message"])
	assert.NotContains(t, payload["message"], "meltdown", "upstream details stay server-side")
}

func TestDeployValidationFailureSendsNothingUpstream(t *testing.T) {
	upstreamCalls := 0
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		w.WriteHeader(http.StatusOK)
	}, nil)

	resp := f.request(t, http.MethodPost, "/deploy", f.token, models.DeployRequest{
		RepoURL: "https://github.com/acme/qa",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload := decodeError(t, resp)
	assert.Contains(t, payload["message"], "name")
	assert.Zero(t, upstreamCalls)
}

func TestDeploySuccess(t *testing.T) {
	var got models.DeployRequest
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/deploy", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}, nil)

	resp := f.request(t, http.MethodPost, "/deploy", f.token, models.DeployRequest{
		PipelineName: "qa",
		RepoURL:      "https://github.com/acme/qa",
		SecretPairs:  []models.SecretPair{{Key: "API_KEY", Value: "s3cret"}},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "qa", got.PipelineName)
}

func TestDeployUpstreamFailureIsGeneric(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, nil)

	resp := f.request(t, http.MethodPost, "/deploy", f.token, models.DeployRequest{
		PipelineName: "qa",
		RepoURL:      "https://github.com/acme/qa",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload := decodeError(t, resp)
	assert.Equal(t, "Deployment failed", payload["message"])
}

func TestDeployParseEnv(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	resp := f.request(t, http.MethodPost, "/deploy/parse_env", f.token, map[string]string{
		"content": "# keys\nexport OPENAI_API_KEY=sk-123\nPINECONE_API_KEY=\"pc 456\"\n",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var payload struct {
		SecretPairs []models.SecretPair `json:"secret_pairs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.SecretPairs, 2)
	assert.Equal(t, models.SecretPair{Key: "OPENAI_API_KEY", Value: "sk-123"}, payload.SecretPairs[0])
	assert.Equal(t, models.SecretPair{Key: "PINECONE_API_KEY", Value: "pc 456"}, payload.SecretPairs[1])
}

func TestLogsQueryPaginates(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, sampleRuns(25))

	resp := f.request(t, http.MethodGet, "/api/logs?page=3&sort_field=timestamp&sort_dir=asc", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var payload struct {
		Records    []models.Run `json:"records"`
		TotalItems int          `json:"total_items"`
		TotalPages int          `json:"total_pages"`
		Page       int          `json:"page"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Len(t, payload.Records, 5)
	assert.Equal(t, 25, payload.TotalItems)
	assert.Equal(t, 3, payload.TotalPages)
	assert.Equal(t, 3, payload.Page)
}

func TestLogsConfiguredPageSize(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, sampleRuns(25),
		func(cfg *config.Config) { cfg.PageSize = 7 })

	resp := f.request(t, http.MethodGet, "/api/logs", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Records    []models.Run `json:"records"`
		TotalPages int          `json:"total_pages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Len(t, payload.Records, 7, "configured page size is the default")
	assert.Equal(t, 4, payload.TotalPages)

	// An explicit page_size still wins over the configured default.
	resp = f.request(t, http.MethodGet, "/api/logs?page_size=10", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Len(t, payload.Records, 10)
}

func TestLogsRequireBearer(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, sampleRuns(3))

	resp := f.request(t, http.MethodGet, "/api/logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestIntegrationsArePublic(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/integrations" {
			json.NewEncoder(w).Encode([]models.Integration{
				{ID: "pinecone", Name: "Pinecone", Type: models.IntegrationTypeVectorDB},
				{ID: "openai", Name: "OpenAI", Type: models.IntegrationTypeLLM},
			})
			return
		}
		http.NotFound(w, r)
	}, nil)

	resp := f.request(t, http.MethodGet, "/api/integrations?type=vector-db-provider", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var integrations []models.Integration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&integrations))
	require.Len(t, integrations, 1)
	assert.Equal(t, "Pinecone", integrations[0].Name)
}

func TestDraftLifecycle(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	state := map[string]any{
		"pipeline_name": "qa",
		"repo_url":      "https://github.com/acme/qa",
		"secret_pairs":  []models.SecretPair{{Key: "API_KEY", Value: "s3cret"}},
	}
	resp := f.request(t, http.MethodPut, "/api/deploy/draft", f.token, state)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodGet, "/api/deploy/draft", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loaded struct {
		PipelineName string              `json:"pipeline_name"`
		SecretPairs  []models.SecretPair `json:"secret_pairs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
	resp.Body.Close()
	assert.Equal(t, "qa", loaded.PipelineName)
	require.Len(t, loaded.SecretPairs, 1)
	assert.Equal(t, "s3cret", loaded.SecretPairs[0].Value)

	resp = f.request(t, http.MethodDelete, "/api/deploy/draft", f.token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.request(t, http.MethodGet, "/api/deploy/draft", f.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	resp := f.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "healthy", payload.Status)
}
