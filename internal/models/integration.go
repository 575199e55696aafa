package models

// Integration types known to the registry.
const (
	IntegrationTypeVectorDB  = "vector-db-provider"
	IntegrationTypeLLM       = "llm-provider"
	IntegrationTypeEmbedding = "embedding-provider"
)

// Integration is an external provider registered for use by pipelines.
type Integration struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	LogoURL string `json:"logo_url,omitempty"`
	DocsURL string `json:"docs_url,omitempty"`
	Status  string `json:"status,omitempty"`
}
