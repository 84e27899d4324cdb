package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Config holds SQLite storage configuration.
type Config struct {
	Path string `yaml:"path"`
}

// DB wraps the on-device SQLite database.
type DB struct {
	*sqlx.DB
}

// NewDB opens the on-device store in WAL mode and applies migrations.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single writer connection sidesteps most SQLITE_BUSY contention.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Health checks if the database is reachable.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// retryConfig bounds retries of transient SQLite errors. The busy_timeout
// pragma handles most SQLITE_BUSY cases at the connection level; the rest
// get application-level retries.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
}

var writeRetry = retryConfig{maxRetries: 3, baseDelay: 50 * time.Millisecond}

func isTransientErr(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}

// retryWrite executes fn, retrying transient lock errors with linear
// backoff. Non-transient errors return immediately.
func retryWrite(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= writeRetry.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransientErr(lastErr) {
			return lastErr
		}
		if attempt == writeRetry.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(writeRetry.baseDelay * time.Duration(attempt+1)):
		}
	}
	return lastErr
}
