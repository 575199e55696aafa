package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, "http://localhost:8000", cfg.CloudAPIURL)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, 10, cfg.PageSize)
	assert.False(t, cfg.FilterBeforePaginate)
	assert.Equal(t, LogSourceHTTP, cfg.LogSource.Kind)
	assert.Equal(t, "logs", cfg.LogSource.TableName)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "environment-secret-that-is-long-enough")
	t.Setenv("PORT", "8080")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("FILTER_BEFORE_PAGINATE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval.Std())
	assert.True(t, cfg.FilterBeforePaginate)
}

func TestYAMLFileOverlaidByEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jwt_secret: file-secret-that-is-at-least-32-chars
port: 4000
poll_interval: 30s
log_source:
  kind: postgres
  dsn: postgres://localhost/runlogs
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port, "environment wins over the file")
	assert.Equal(t, 30*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, LogSourcePostgres, cfg.LogSource.Kind)
	assert.Equal(t, "postgres://localhost/runlogs", cfg.LogSource.DSN)
}

func TestPostgresSourceRequiresDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "environment-secret-that-is-long-enough")
	t.Setenv("LOG_SOURCE", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_DATABASE_URL")
}

func TestUnknownLogSourceRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "environment-secret-that-is-long-enough")
	t.Setenv("LOG_SOURCE", "kafka")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log source")
}

func TestDurationRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: soon\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "environment-secret-that-is-long-enough")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}
