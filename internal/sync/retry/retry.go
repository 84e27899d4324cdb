package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fieldsync/agent/internal/sync/classify"
)

// ErrTimeout is returned when an attempt outlives its per-call deadline.
// It wraps context.DeadlineExceeded so the classifier treats it as
// transient.
var ErrTimeout = fmt.Errorf("operation timed out: %w", context.DeadlineExceeded)

// Policy defines retry behavior. It is process-wide configuration, read at
// call time by every invocation rather than snapshotted at startup.
type Policy struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxRetries:        3,
	InitialDelay:      1 * time.Second,
	MaxDelay:          30 * time.Second,
	BackoffMultiplier: 2.0,
}

// Operation is a single attemptable unit of work.
type Operation func(ctx context.Context) error

// AttemptInfo describes one failed attempt, passed to observers.
type AttemptInfo struct {
	Attempt   int
	Err       error
	Retryable bool
	NextDelay time.Duration
}

// Observer is invoked on every failed attempt. It must not alter control
// flow.
type Observer func(info AttemptInfo)

// Executor runs operations with bounded retry, exponential backoff and
// per-call timeouts, consulting a classifier on every failure.
type Executor struct {
	classifier *classify.Classifier
	log        *slog.Logger

	mu     sync.RWMutex
	policy Policy
}

// NewExecutor creates an Executor with the given classifier and policy.
func NewExecutor(classifier *classify.Classifier, policy Policy) *Executor {
	if classifier == nil {
		classifier = classify.New()
	}
	return &Executor{
		classifier: classifier,
		policy:     policy,
		log:        slog.Default(),
	}
}

// Policy returns the current process-wide policy.
func (e *Executor) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetPolicy replaces the policy. The change takes effect on the next
// attempt, not on attempts already sleeping.
func (e *Executor) SetPolicy(p Policy) {
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
}

// Do runs op up to MaxRetries+1 times with exponential backoff between
// attempts. Terminal errors propagate immediately with no further sleep.
func (e *Executor) Do(ctx context.Context, op Operation, observers ...Observer) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		// Policy is re-read per attempt so runtime changes apply. A
		// negative MaxRetries clamps to zero so the operation always
		// runs at least once.
		policy := e.Policy()
		if policy.MaxRetries < 0 {
			policy.MaxRetries = 0
		}
		if attempt > policy.MaxRetries {
			break
		}

		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				e.log.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		retryable := e.classifier.Retryable(err)
		last := attempt == policy.MaxRetries

		var delay time.Duration
		if retryable && !last {
			delay = backoffDelay(attempt, policy)
		}

		notify(observers, AttemptInfo{
			Attempt:   attempt + 1,
			Err:       err,
			Retryable: retryable,
			NextDelay: delay,
		})

		if !retryable {
			e.log.Warn("terminal failure, not retrying",
				"attempt", attempt+1, "error", err)
			return err
		}
		if last {
			break
		}

		e.log.Debug("transient failure, backing off",
			"attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	attempts := e.Policy().MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	e.log.Warn("retries exhausted", "attempts", attempts, "error", lastErr)
	return lastErr
}

// DoWithTimeout races op against a timer. If the timer fires first the
// operation is abandoned: its context is canceled, and a result arriving
// later is discarded via the buffered channel.
func (e *Executor) DoWithTimeout(ctx context.Context, op Operation, timeout time.Duration) error {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(attemptCtx)
	}()

	select {
	case err := <-done:
		// An operation that observed the deadline itself still reports
		// as a timeout of this call.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrTimeout
		}
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTimeout
	}
}

// DoWithRetryAndTimeout composes Do and DoWithTimeout: each attempt gets
// its own deadline, and a timed-out attempt is retried like any other
// transient failure.
func (e *Executor) DoWithRetryAndTimeout(
	ctx context.Context,
	op Operation,
	timeout time.Duration,
	observers ...Observer,
) error {
	return e.Do(ctx, func(ctx context.Context) error {
		return e.DoWithTimeout(ctx, op, timeout)
	}, observers...)
}

func notify(observers []Observer, info AttemptInfo) {
	for _, obs := range observers {
		if obs != nil {
			obs(info)
		}
	}
}

// backoffDelay computes the sleep before attempt n+1:
// min(initial * multiplier^n, max).
func backoffDelay(attempt int, policy Policy) time.Duration {
	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffMultiplier, float64(attempt))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	return time.Duration(delay)
}
