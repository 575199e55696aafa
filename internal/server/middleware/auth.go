package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/raglabs/pipeline-dashboard/internal/auth"
)

// Context keys for session information.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the authenticated user email.
	UserEmailKey contextKey = "user_email"
	// BearerTokenKey is the context key for the raw bearer token, forwarded
	// upstream on proxied calls.
	BearerTokenKey contextKey = "bearer_token"
)

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserEmail extracts the user email from the request context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetBearerToken extracts the raw bearer token from the request context.
func GetBearerToken(ctx context.Context) string {
	if v := ctx.Value(BearerTokenKey); v != nil {
		return v.(string)
	}
	return ""
}

// AuthMiddleware validates session bearer tokens.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate validates the bearer token and stores the session in the
// request context. A missing credential is rejected before anything reaches
// the cloud API.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeUnauthorized(w, "Missing authentication")
			return
		}

		session, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("session validation failed", "error", err)
			if err == auth.ErrExpiredToken {
				writeUnauthorized(w, "Token has expired")
				return
			}
			writeUnauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, session.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, session.Email)
		ctx = context.WithValue(ctx, BearerTokenKey, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
