package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldsync/agent/internal/core/domain"
)

const statusKey = "fieldsync:status:last"

// ErrNoSnapshot is returned when no cached status snapshot exists.
var ErrNoSnapshot = errors.New("no cached status snapshot")

// Client wraps Redis operations for the status snapshot cache.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheStatus stores the last computed sync status for fast cold-start
// display.
func (c *Client) CacheStatus(ctx context.Context, status domain.SyncStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return c.rdb.Set(ctx, statusKey, data, 0).Err()
}

// LastStatus returns the most recently cached sync status.
func (c *Client) LastStatus(ctx context.Context) (domain.SyncStatus, error) {
	data, err := c.rdb.Get(ctx, statusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SyncStatus{}, ErrNoSnapshot
	}
	if err != nil {
		return domain.SyncStatus{}, fmt.Errorf("get cached status: %w", err)
	}

	var status domain.SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.SyncStatus{}, fmt.Errorf("unmarshal cached status: %w", err)
	}
	return status, nil
}
