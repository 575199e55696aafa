// The web command runs the pipeline dashboard server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/raglabs/pipeline-dashboard/internal/auth"
	"github.com/raglabs/pipeline-dashboard/internal/fetcher"
	"github.com/raglabs/pipeline-dashboard/internal/server"
	"github.com/raglabs/pipeline-dashboard/internal/server/health"
	"github.com/raglabs/pipeline-dashboard/internal/shutdown"
	"github.com/raglabs/pipeline-dashboard/pkg/config"
	"github.com/raglabs/pipeline-dashboard/pkg/logger"
	"github.com/raglabs/pipeline-dashboard/web/api"
)

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.FromEnv()

	client := api.NewClient(cfg.CloudAPIURL)

	var (
		source fetcher.Source
		pinger health.Pinger
		closer *fetcher.PostgresSource
	)
	switch cfg.LogSource.Kind {
	case config.LogSourcePostgres:
		pg, err := fetcher.NewPostgresSource(fetcher.PostgresConfig{
			DSN:       cfg.LogSource.DSN,
			TableName: cfg.LogSource.TableName,
			MaxRows:   cfg.LogSource.MaxRows,
		}, log.WithComponent("log-source").Logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening log database: %v\n", err)
			os.Exit(1)
		}
		source, pinger, closer = pg, pg, pg
	default:
		source = api.NewRunSource(client, cfg.CloudAPIToken)
	}

	f := fetcher.New(source, log.WithComponent("fetcher").Logger)

	// Warm the snapshot so the first page render has data; a failure here
	// just means the view starts empty and the poller catches up.
	warmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := f.Refetch(warmCtx); err != nil {
		log.Warn("initial run log fetch failed", "error", err)
	}
	cancel()

	authSvc := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry.Std(),
	}, log.WithComponent("auth").Logger)

	srv := server.New(cfg, server.Deps{
		Client:       client,
		Fetcher:      f,
		Auth:         authSvc,
		SourcePinger: pinger,
	}, log.Logger)

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout.Std()),
		shutdown.WithLogger(log.Logger),
	)
	if closer != nil {
		coordinator.Register(shutdown.NewCloserComponent("log-database", closer))
	}
	coordinator.Register(srv)

	go func() {
		if err := srv.Start(context.Background()); err != nil {
			log.Error("server stopped", "error", err)
			coordinator.Shutdown()
		}
	}()

	coordinator.WaitForSignal()
	os.Exit(coordinator.ExitCode())
}
