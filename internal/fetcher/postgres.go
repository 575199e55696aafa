package fetcher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/internal/runlog"
)

// PostgresConfig configures a direct-database log source.
type PostgresConfig struct {
	DSN string
	// TableName is the engine's log table. Defaults to "logs".
	TableName string
	// MaxRows caps how many raw rows a single fetch reads. Defaults to 5000.
	MaxRows int
}

// PostgresSource reads raw run logs straight from the pipeline engine's
// Postgres log table, for installations where the dashboard shares the
// engine's database instead of going through the cloud API. The table layout
// matches what the engine writes: timestamp, pipeline_run_id,
// pipeline_run_type, method, result, log_level.
type PostgresSource struct {
	db      *sql.DB
	table   string
	maxRows int
	logger  *slog.Logger
}

// NewPostgresSource opens a connection pool to the engine's log database.
func NewPostgresSource(cfg PostgresConfig, logger *slog.Logger) (*PostgresSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TableName == "" {
		cfg.TableName = "logs"
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening log database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresSource{
		db:      db,
		table:   cfg.TableName,
		maxRows: cfg.MaxRows,
		logger:  logger,
	}, nil
}

// FetchRuns reads the raw log rows and assembles them into run records.
func (s *PostgresSource) FetchRuns(ctx context.Context) ([]models.Run, error) {
	query := fmt.Sprintf(`
		SELECT timestamp, pipeline_run_id, pipeline_run_type, method, result, log_level
		FROM %s
		ORDER BY timestamp ASC
		LIMIT $1`, s.table)

	rows, err := s.db.QueryContext(ctx, query, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("querying run logs: %w", err)
	}
	defer rows.Close()

	var raw []models.LogRow
	for rows.Next() {
		var row models.LogRow
		err := rows.Scan(
			&row.Timestamp,
			&row.PipelineRunID,
			&row.PipelineRunType,
			&row.Method,
			&row.Result,
			&row.LogLevel,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log rows: %w", err)
	}

	return runlog.Assemble(raw), nil
}

// Ping verifies database connectivity.
func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
