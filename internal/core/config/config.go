package config

import (
	"time"

	redisclient "github.com/fieldsync/agent/internal/infra/redis"
	"github.com/fieldsync/agent/internal/infra/storage/postgres"
	"github.com/fieldsync/agent/internal/infra/storage/sqlite"
	"github.com/fieldsync/agent/internal/sync/retry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Auth     AuthConfig         `yaml:"auth"`
	Sync     SyncConfig         `yaml:"sync"`
	Retry    RetryConfig        `yaml:"retry"`
	Queue    QueueConfig        `yaml:"queue"`
	Database DatabaseConfig     `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Probe    ProbeConfig        `yaml:"probe"`
}

// ServerConfig holds the health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AuthConfig holds the bearer token presented to the remote authority.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// SyncConfig holds orchestrator settings. Durations are parse-on-load
// strings ("60s", "2m").
type SyncConfig struct {
	IntervalStr       string `yaml:"interval"`
	AttemptTimeoutStr string `yaml:"attempt_timeout"`

	Interval       time.Duration `yaml:"-"`
	AttemptTimeout time.Duration `yaml:"-"`
}

// RetryConfig holds the retry executor policy.
type RetryConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	InitialDelayStr   string  `yaml:"initial_delay"`
	MaxDelayStr       string  `yaml:"max_delay"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	InitialDelay time.Duration `yaml:"-"`
	MaxDelay     time.Duration `yaml:"-"`
}

// Policy converts the parsed config into an executor policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxRetries:        c.MaxRetries,
		InitialDelay:      c.InitialDelay,
		MaxDelay:          c.MaxDelay,
		BackoffMultiplier: c.BackoffMultiplier,
	}
}

// QueueConfig holds queue-level policy.
type QueueConfig struct {
	// MaxRetryCount is the cross-drain retry ceiling; -1 retries forever.
	MaxRetryCount    int    `yaml:"max_retry_count"`
	DropRetentionStr string `yaml:"drop_retention"`

	DropRetention time.Duration `yaml:"-"`
}

// DatabaseConfig selects the backing store. Driver is "sqlite" (default,
// on-device) or "postgres" (hub deployments); empty with no path falls back
// to in-memory storage.
type DatabaseConfig struct {
	Driver   string          `yaml:"driver"`
	SQLite   sqlite.Config   `yaml:"sqlite"`
	Postgres postgres.Config `yaml:"postgres"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ProbeConfig holds connectivity probe settings.
type ProbeConfig struct {
	URL         string `yaml:"url"`
	IntervalStr string `yaml:"interval"`

	Interval time.Duration `yaml:"-"`
}
