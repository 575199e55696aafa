// Package server wires the dashboard's HTTP surface: the authenticated cloud
// API proxies, the runs view endpoints, and the embedded UI.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/raglabs/pipeline-dashboard/internal/auth"
	"github.com/raglabs/pipeline-dashboard/internal/deployform"
	"github.com/raglabs/pipeline-dashboard/internal/fetcher"
	"github.com/raglabs/pipeline-dashboard/internal/logs"
	"github.com/raglabs/pipeline-dashboard/internal/poller"
	"github.com/raglabs/pipeline-dashboard/internal/runlog"
	"github.com/raglabs/pipeline-dashboard/internal/secrets"
	"github.com/raglabs/pipeline-dashboard/internal/server/handlers"
	"github.com/raglabs/pipeline-dashboard/internal/server/health"
	"github.com/raglabs/pipeline-dashboard/internal/server/middleware"
	"github.com/raglabs/pipeline-dashboard/pkg/config"
	"github.com/raglabs/pipeline-dashboard/ui"
	"github.com/raglabs/pipeline-dashboard/web/api"
)

// Version is the current version of the dashboard server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server is the dashboard HTTP server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     *config.Config
	logger     *slog.Logger

	client  *api.Client
	fetcher *fetcher.Fetcher
	engine  *runlog.Engine
	poller  *poller.Poller
	broker  *logs.Broker
	auth    *auth.Service
	drafts  *deployform.DraftStore
	checker *health.Checker
}

// Deps are the constructed collaborators the server routes to.
type Deps struct {
	Client  *api.Client
	Fetcher *fetcher.Fetcher
	Auth    *auth.Service
	// SourcePinger is the log source's connectivity check; nil for the HTTP
	// source.
	SourcePinger health.Pinger
}

// New creates the dashboard server and its router.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		client:  deps.Client,
		fetcher: deps.Fetcher,
		auth:    deps.Auth,
	}

	s.engine = runlog.NewEngine(cfg.FilterBeforePaginate)
	s.broker = logs.NewBroker(logger)
	s.poller = poller.New(
		&notifyingRefetcher{fetcher: deps.Fetcher, broker: s.broker},
		cfg.PollInterval.Std(),
		logger,
	)
	s.checker = health.NewChecker(deps.SourcePinger, deps.Fetcher, Version)

	// Draft persistence is optional: without a recipient key the endpoints
	// return 404s and the deploy flow works without it.
	if cfg.Drafts.AgeRecipientKey != "" {
		enc, err := secrets.NewService(secrets.Config{
			RecipientKey: cfg.Drafts.AgeRecipientKey,
			IdentityKey:  cfg.Drafts.AgeIdentityKey,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize draft encryption", "error", err)
		} else if store, err := deployform.NewDraftStore(cfg.Drafts.Dir, enc); err != nil {
			logger.Error("failed to initialize draft store", "error", err)
		} else {
			s.drafts = store
			logger.Info("deploy drafts enabled", "dir", cfg.Drafts.Dir, "can_decrypt", enc.CanDecrypt())
		}
	} else {
		logger.Warn("deploy drafts disabled, no age recipient key configured")
	}

	s.setupRouter()
	return s
}

// notifyingRefetcher is the poller's target: it refetches and, when a new
// snapshot landed, notifies live-view subscribers.
type notifyingRefetcher struct {
	fetcher *fetcher.Fetcher
	broker  *logs.Broker
}

func (n *notifyingRefetcher) Refetch(ctx context.Context) error {
	_, before := n.fetcher.Snapshot()
	err := n.fetcher.Refetch(ctx)
	if _, after := n.fetcher.Snapshot(); after != before {
		n.broker.Publish(after)
	}
	return err
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", s.checker.Handler())

	authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)

	pipelinesHandler := handlers.NewPipelinesHandler(s.client, s.logger)
	deployHandler := handlers.NewDeployHandler(s.client, s.drafts, s.logger)
	logsHandler := handlers.NewLogsHandler(s.fetcher, s.engine, s.config.PageSize, s.logger)
	integrationsHandler := handlers.NewIntegrationsHandler(
		s.client,
		api.NewIntegrationsCache(s.config.IntegrationsTTL.Std()),
		s.logger,
	)

	// Cloud API proxy routes, mirroring the paths the SPA has always used.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Get("/user_pipelines", pipelinesHandler.List)
		r.Post("/deploy", deployHandler.Create)
		r.Post("/deploy/parse_env", deployHandler.ParseEnv)
		r.Get("/deploy/state", deployHandler.GetState)
	})

	r.Route("/api", func(r chi.Router) {
		// The integration registry is public configuration.
		r.Get("/integrations", integrationsHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/logs", logsHandler.Get)
			r.Post("/logs/refresh", logsHandler.Refresh)
			r.Get("/logs/ws", logsHandler.Stream(s.broker, s.poller))

			if s.drafts != nil {
				draftsHandler := handlers.NewDraftsHandler(s.drafts, s.logger)
				r.Get("/deploy/draft", draftsHandler.Get)
				r.Put("/deploy/draft", draftsHandler.Put)
				r.Delete("/deploy/draft", draftsHandler.Delete)
			}
		})
	})

	// Embedded single-page UI with index fallback.
	if ui.Available() {
		r.NotFound(ui.Handler().ServeHTTP)
	}

	s.router = r
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting dashboard server", "addr", addr, "version", Version)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dashboard server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout.Std())
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Name implements shutdown.Component.
func (s *Server) Name() string { return "http-server" }

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
