package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
)

// HTTPError reports a non-2xx response from the remote authority. The
// status code is the classification key; the body is kept for logging.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("authority returned %d: %s", e.Status, e.Body)
}

// NetworkError wraps a transport-level failure (dial, DNS, reset) so the
// classifier can match it without inspecting error text.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Config holds replay client settings.
type Config struct {
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client replays queued operations against the remote authority.
type Client struct {
	token      string
	httpClient *http.Client
}

// NewClient creates a replay client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		token: cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Replay sends one operation as an HTTP request. Any 2xx is success;
// non-2xx becomes *HTTPError and transport failures become *NetworkError.
func (c *Client) Replay(ctx context.Context, op domain.Operation) error {
	req, err := http.NewRequestWithContext(
		ctx,
		op.Method,
		op.Endpoint,
		bytes.NewReader(op.Payload),
	)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &HTTPError{Status: resp.StatusCode, Body: string(body)}
}
