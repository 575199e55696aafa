package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/raglabs/pipeline-dashboard/internal/deployform"
	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/internal/server/middleware"
)

// DeployHandler runs one deploy-form controller per user session. The
// controller owns validation, the in-flight guard, and the delayed
// post-success reset; the handler maps its outcomes onto HTTP.
type DeployHandler struct {
	deployer deployform.Deployer
	drafts   *deployform.DraftStore
	logger   *slog.Logger

	mu    sync.Mutex
	forms map[string]*userForm
}

type userForm struct {
	controller *deployform.Controller
	tokens     *sessionToken
}

// sessionToken hands the most recent request's bearer to the controller.
type sessionToken struct {
	mu    sync.Mutex
	token string
}

func (s *sessionToken) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token implements deployform.TokenSource.
func (s *sessionToken) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// NewDeployHandler creates a deploy handler. The draft store may be nil when
// draft persistence is not configured.
func NewDeployHandler(deployer deployform.Deployer, drafts *deployform.DraftStore, logger *slog.Logger) *DeployHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeployHandler{
		deployer: deployer,
		drafts:   drafts,
		logger:   logger,
		forms:    make(map[string]*userForm),
	}
}

// form returns the user's controller, creating it on first use. A successful
// deploy clears the user's saved draft once the controller's reset fires.
func (h *DeployHandler) form(userID string) *userForm {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f, ok := h.forms[userID]; ok {
		return f
	}

	tokens := &sessionToken{}
	f := &userForm{tokens: tokens}
	f.controller = deployform.NewController(h.deployer, tokens, h.logger,
		deployform.WithNavigate(func() {
			if h.drafts == nil {
				return
			}
			if err := h.drafts.Delete(userID); err != nil {
				h.logger.Warn("clearing deploy draft failed", "user", userID, "error", err)
			}
		}),
	)
	h.forms[userID] = f
	return f
}

// Create handles POST /deploy.
func (h *DeployHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	f := h.form(userID)
	f.tokens.set(middleware.GetBearerToken(r.Context()))
	f.controller.SetFields(req.PipelineName, req.RepoURL, req.SecretPairs)

	err := f.controller.Submit(r.Context())
	switch {
	case err == nil:
		WriteJSON(w, http.StatusAccepted, map[string]string{"status": "deploying"})
	case errors.Is(err, deployform.ErrSubmitInFlight):
		WriteConflict(w, err.Error())
	case errors.Is(err, deployform.ErrNoCredential):
		WriteUnauthorized(w, "Missing authentication")
	case errors.Is(err, deployform.ErrNameRequired),
		errors.Is(err, deployform.ErrRepoURLRequired),
		errors.Is(err, deployform.ErrSecretPairIncomplete):
		WriteBadRequest(w, err.Error())
	default:
		h.logger.Warn("deploy failed", "user", userID, "error", err)
		WriteUpstreamError(w, "Deployment failed")
	}
}

// ParseEnv handles POST /deploy/parse_env: converts pasted .env file content
// into secret pairs for the deploy form. Parsing happens server-side so the
// SPA and the CLI share one grammar.
func (h *DeployHandler) ParseEnv(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]models.SecretPair{
		"secret_pairs": deployform.ParseEnvFile(req.Content),
	})
}

// GetState handles GET /deploy/state: the current form state for the caller,
// secret values blanked.
func (h *DeployHandler) GetState(w http.ResponseWriter, r *http.Request) {
	f := h.form(middleware.GetUserID(r.Context()))
	state := f.controller.State()
	for i := range state.SecretPairs {
		state.SecretPairs[i].Value = ""
	}
	WriteJSON(w, http.StatusOK, state)
}
