package handlers

import (
	"log/slog"
	"net/http"

	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/web/api"
)

// IntegrationsHandler serves the provider registry from the TTL cache.
type IntegrationsHandler struct {
	client *api.Client
	cache  *api.IntegrationsCache
	logger *slog.Logger
}

// NewIntegrationsHandler creates an integrations handler.
func NewIntegrationsHandler(client *api.Client, cache *api.IntegrationsCache, logger *slog.Logger) *IntegrationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationsHandler{client: client, cache: cache, logger: logger}
}

// List handles GET /api/integrations. An optional ?type= narrows the
// registry, e.g. ?type=vector-db-provider for the vector database page.
func (h *IntegrationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		integrations []models.Integration
		err          error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		integrations, err = h.cache.GetByType(r.Context(), h.client, t)
	} else {
		integrations, err = h.cache.Get(r.Context(), h.client)
	}
	if err != nil {
		h.logger.Warn("integration registry fetch failed", "error", err)
		WriteUpstreamError(w, "Could not fetch integrations")
		return
	}

	if integrations == nil {
		integrations = []models.Integration{}
	}
	WriteJSON(w, http.StatusOK, integrations)
}
