package models

import "time"

// PipelineStatus represents the lifecycle state of a deployed pipeline.
type PipelineStatus string

const (
	PipelineStatusDeploying PipelineStatus = "deploying"
	PipelineStatusActive    PipelineStatus = "active"
	PipelineStatusFailed    PipelineStatus = "failed"
)

// Pipeline is a deployed RAG workload backed by a source repository.
type Pipeline struct {
	ID           string         `json:"id"`
	Name         string         `json:"pipeline_name"`
	RepoURL      string         `json:"repo_url"`
	DeploymentID string         `json:"deployment_id,omitempty"`
	Status       PipelineStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SecretPair is a user-entered key/value secret attached to a deployment
// request. Pairs are ephemeral: held in form state until submission, never
// stored in plaintext.
type SecretPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DeployRequest is the creation payload sent to the cloud API.
type DeployRequest struct {
	PipelineName string       `json:"pipeline_name"`
	RepoURL      string       `json:"repo_url"`
	SecretPairs  []SecretPair `json:"secret_pairs"`
}
