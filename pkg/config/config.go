// Package config provides configuration for the dashboard. Values come from
// an optional YAML file overlaid by environment variables; the environment
// always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can use "30s" notation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Log source kinds.
const (
	LogSourceHTTP     = "http"
	LogSourcePostgres = "postgres"
)

// Config holds all configuration for the dashboard.
type Config struct {
	// Cloud API
	CloudAPIURL string `yaml:"cloud_api_url"`
	// CloudAPIToken is the service token used for run-log retrieval when the
	// log source is the cloud API.
	CloudAPIToken string `yaml:"cloud_api_token"`

	// Session validation
	JWTSecret string   `yaml:"jwt_secret"`
	JWTExpiry Duration `yaml:"jwt_expiry"`

	// Server
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Runs view
	PollInterval Duration `yaml:"poll_interval"`
	PageSize     int      `yaml:"page_size"`
	// FilterBeforePaginate switches the runs query to conventional
	// filter-then-paginate ordering instead of the historical
	// paginate-then-filter behavior.
	FilterBeforePaginate bool `yaml:"filter_before_paginate"`

	// Integration registry cache
	IntegrationsTTL Duration `yaml:"integrations_ttl"`

	// Log source
	LogSource LogSourceConfig `yaml:"log_source"`

	// Deploy draft persistence
	Drafts DraftsConfig `yaml:"drafts"`
}

// LogSourceConfig selects where run logs come from.
type LogSourceConfig struct {
	// Kind is "http" (cloud API) or "postgres" (shared engine database).
	Kind string `yaml:"kind"`
	// DSN is the Postgres connection string for the postgres kind.
	DSN string `yaml:"dsn"`
	// TableName is the engine's log table. Defaults to "logs".
	TableName string `yaml:"table_name"`
	// MaxRows caps how many raw rows a single fetch reads.
	MaxRows int `yaml:"max_rows"`
}

// DraftsConfig holds deploy-draft persistence configuration. Drafts are
// disabled when no recipient key is set.
type DraftsConfig struct {
	Dir string `yaml:"dir"`
	// AgeRecipientKey is the age public key for encrypting secret values.
	// Format: age1... (Bech32 encoded)
	AgeRecipientKey string `yaml:"age_recipient_key"`
	// AgeIdentityKey is the age private key for decrypting them back.
	// Format: AGE-SECRET-KEY-1... (Bech32 encoded)
	AgeIdentityKey string `yaml:"age_identity_key"`
}

// defaults returns the built-in configuration.
func defaults() *Config {
	return &Config{
		CloudAPIURL:          "http://localhost:8000",
		JWTExpiry:            Duration(24 * time.Hour),
		Host:                 "0.0.0.0",
		Port:                 3000,
		ShutdownTimeout:      Duration(30 * time.Second),
		PollInterval:         Duration(5 * time.Second),
		PageSize:             10,
		FilterBeforePaginate: false,
		IntegrationsTTL:      Duration(5 * time.Minute),
		LogSource: LogSourceConfig{
			Kind:      LogSourceHTTP,
			TableName: "logs",
			MaxRows:   5000,
		},
		Drafts: DraftsConfig{
			Dir: "data/drafts",
		},
	}
}

// Load reads configuration. The file path comes from CONFIG_FILE and may be
// empty; a missing file is only an error when explicitly configured.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	c.CloudAPIURL = getEnv("CLOUD_API_URL", c.CloudAPIURL)
	c.CloudAPIToken = getEnv("CLOUD_API_TOKEN", c.CloudAPIToken)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiry = Duration(getDurationEnv("JWT_EXPIRY", c.JWTExpiry.Std()))
	c.Host = getEnv("HOST", c.Host)
	c.Port = getIntEnv("PORT", c.Port)
	c.ShutdownTimeout = Duration(getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout.Std()))
	c.PollInterval = Duration(getDurationEnv("POLL_INTERVAL", c.PollInterval.Std()))
	c.PageSize = getIntEnv("PAGE_SIZE", c.PageSize)
	c.FilterBeforePaginate = getBoolEnv("FILTER_BEFORE_PAGINATE", c.FilterBeforePaginate)
	c.IntegrationsTTL = Duration(getDurationEnv("INTEGRATIONS_TTL", c.IntegrationsTTL.Std()))

	c.LogSource.Kind = getEnv("LOG_SOURCE", c.LogSource.Kind)
	c.LogSource.DSN = getEnv("LOG_DATABASE_URL", c.LogSource.DSN)
	c.LogSource.TableName = getEnv("LOG_TABLE", c.LogSource.TableName)
	c.LogSource.MaxRows = getIntEnv("LOG_MAX_ROWS", c.LogSource.MaxRows)

	c.Drafts.Dir = getEnv("DRAFTS_DIR", c.Drafts.Dir)
	c.Drafts.AgeRecipientKey = getEnv("DRAFTS_AGE_RECIPIENT_KEY", c.Drafts.AgeRecipientKey)
	c.Drafts.AgeIdentityKey = getEnv("DRAFTS_AGE_IDENTITY_KEY", c.Drafts.AgeIdentityKey)
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.LogSource.Kind {
	case LogSourceHTTP:
		if c.CloudAPIURL == "" {
			return fmt.Errorf("CLOUD_API_URL is required for the http log source")
		}
	case LogSourcePostgres:
		if c.LogSource.DSN == "" {
			return fmt.Errorf("LOG_DATABASE_URL is required for the postgres log source")
		}
	default:
		return fmt.Errorf("unknown log source %q", c.LogSource.Kind)
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg := defaults()
	cfg.JWTSecret = "development-secret-key-min-32-chars"
	cfg.applyEnv()
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
