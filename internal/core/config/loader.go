package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/fieldsync/agent/internal/sync/retry"
)

// Load reads configuration from a YAML file, expands environment variables
// and applies defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// resolve parses the duration strings into typed fields.
func (cfg *AppConfig) resolve() error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"sync.interval", cfg.Sync.IntervalStr, &cfg.Sync.Interval},
		{"sync.attempt_timeout", cfg.Sync.AttemptTimeoutStr, &cfg.Sync.AttemptTimeout},
		{"retry.initial_delay", cfg.Retry.InitialDelayStr, &cfg.Retry.InitialDelay},
		{"retry.max_delay", cfg.Retry.MaxDelayStr, &cfg.Retry.MaxDelay},
		{"queue.drop_retention", cfg.Queue.DropRetentionStr, &cfg.Queue.DropRetention},
		{"probe.interval", cfg.Probe.IntervalStr, &cfg.Probe.Interval},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 60 * time.Second
	}
	if cfg.Sync.AttemptTimeout == 0 {
		cfg.Sync.AttemptTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = retry.DefaultPolicy.MaxRetries
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = retry.DefaultPolicy.InitialDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = retry.DefaultPolicy.MaxDelay
	}
	if cfg.Retry.BackoffMultiplier == 0 {
		cfg.Retry.BackoffMultiplier = retry.DefaultPolicy.BackoffMultiplier
	}
	if cfg.Queue.MaxRetryCount == 0 {
		cfg.Queue.MaxRetryCount = 25
	}
	if cfg.Probe.Interval == 0 {
		cfg.Probe.Interval = 30 * time.Second
	}
}
