package handlers

import (
	"log/slog"
	"net/http"

	"github.com/raglabs/pipeline-dashboard/internal/server/middleware"
	"github.com/raglabs/pipeline-dashboard/web/api"
)

// PipelinesHandler proxies pipeline listings to the cloud API on the
// caller's behalf.
type PipelinesHandler struct {
	client *api.Client
	logger *slog.Logger
}

// NewPipelinesHandler creates a pipelines handler.
func NewPipelinesHandler(client *api.Client, logger *slog.Logger) *PipelinesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelinesHandler{client: client, logger: logger}
}

// List handles GET /user_pipelines. The bearer was validated by the auth
// middleware; here it is forwarded upstream. Upstream failures come back as
// a generic 400: the cloud API's error bodies are logged, not exposed.
func (h *PipelinesHandler) List(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetBearerToken(r.Context())

	pipelines, err := h.client.ListPipelines(r.Context(), token)
	if err != nil {
		h.logger.Warn("pipeline listing failed", "error", err, "user", middleware.GetUserID(r.Context()))
		WriteUpstreamError(w, "Could not fetch pipelines")
		return
	}

	WriteJSON(w, http.StatusOK, pipelines)
}
