package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/raglabs/pipeline-dashboard/internal/deployform"
	"github.com/raglabs/pipeline-dashboard/internal/server/middleware"
)

// DraftsHandler persists one deploy-form draft per user, secret values
// encrypted at rest.
type DraftsHandler struct {
	store  *deployform.DraftStore
	logger *slog.Logger
}

// NewDraftsHandler creates a drafts handler.
func NewDraftsHandler(store *deployform.DraftStore, logger *slog.Logger) *DraftsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftsHandler{store: store, logger: logger}
}

// Get handles GET /api/deploy/draft.
func (h *DraftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.store.Load(middleware.GetUserID(r.Context()))
	if errors.Is(err, deployform.ErrNoDraft) {
		WriteNotFound(w, "No draft saved")
		return
	}
	if err != nil {
		h.logger.Error("loading deploy draft failed", "error", err)
		WriteInternalError(w, "Could not load draft")
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

// Put handles PUT /api/deploy/draft.
func (h *DraftsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var state deployform.State
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.store.Save(middleware.GetUserID(r.Context()), state); err != nil {
		h.logger.Error("saving deploy draft failed", "error", err)
		WriteInternalError(w, "Could not save draft")
		return
	}
	WriteJSON(w, http.StatusNoContent, nil)
}

// Delete handles DELETE /api/deploy/draft.
func (h *DraftsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(middleware.GetUserID(r.Context())); err != nil {
		h.logger.Error("deleting deploy draft failed", "error", err)
		WriteInternalError(w, "Could not delete draft")
		return
	}
	WriteJSON(w, http.StatusNoContent, nil)
}
