package classify

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/fieldsync/agent/internal/infra/transport"
)

// Predicate reports whether an error matches one retryable failure family.
type Predicate func(err error) bool

// Classifier partitions failures into transient and terminal. Classification
// is the logical OR across all registered predicates; anything unmatched is
// terminal. Predicates operate on typed errors produced at the transport
// boundary, never on message text.
type Classifier struct {
	mu         sync.RWMutex
	predicates []Predicate
}

// New returns a classifier with the built-in retryable families:
// network failures, timeouts, HTTP 5xx and HTTP 429.
func New() *Classifier {
	return &Classifier{
		predicates: []Predicate{
			IsNetworkError,
			IsTimeout,
			IsServerError,
			IsRateLimited,
		},
	}
}

// Register adds an additional retryable predicate.
func (c *Classifier) Register(p Predicate) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.predicates = append(c.predicates, p)
	c.mu.Unlock()
}

// Retryable reports whether the error is expected to clear on retry.
// A predicate that panics counts as no-match.
func (c *Classifier) Retryable(err error) bool {
	if err == nil {
		return false
	}

	c.mu.RLock()
	predicates := make([]Predicate, len(c.predicates))
	copy(predicates, c.predicates)
	c.mu.RUnlock()

	for _, p := range predicates {
		if matchSafe(p, err) {
			return true
		}
	}
	return false
}

func matchSafe(p Predicate, err error) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return p(err)
}

// IsNetworkError matches connection-refused, unreachable-host, DNS and
// other transport-level failures.
func IsNetworkError(err error) bool {
	var te *transport.NetworkError
	if errors.As(err, &te) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsTimeout matches deadline expirations, including the retry executor's
// per-call timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsServerError matches HTTP responses in [500, 599].
func IsServerError(err error) bool {
	var httpErr *transport.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status >= 500 && httpErr.Status <= 599
}

// IsRateLimited matches HTTP 429.
func IsRateLimited(err error) bool {
	var httpErr *transport.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == 429
}
