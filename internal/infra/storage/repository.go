package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
)

// PersistenceError wraps a queue read/write failure. Losing the queue loses
// the durability guarantee, so these are always surfaced to the caller and
// never silently swallowed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// OperationRepository handles the durable pending-operation queue.
// Implementations must flush every mutation before returning so a crash
// leaves the store consistent with the last completed call, and must treat
// Remove/IncrementRetry on absent ids as no-ops.
type OperationRepository interface {
	// Append adds an operation to the end of the queue
	Append(ctx context.Context, op *domain.Operation) error

	// List returns all pending operations in FIFO enqueue order
	List(ctx context.Context) ([]domain.Operation, error)

	// Remove deletes an operation by id
	Remove(ctx context.Context, id string) error

	// IncrementRetry bumps an operation's cross-drain retry counter
	IncrementRetry(ctx context.Context, id string) error

	// Count returns the number of pending operations
	Count(ctx context.Context) (int, error)
}

// DropRepository records operations permanently dropped after terminal
// failures.
type DropRepository interface {
	// Add records a drop
	Add(ctx context.Context, rec *domain.DropRecord) error

	// List returns drop records, newest first
	List(ctx context.Context, limit int) ([]domain.DropRecord, error)

	// DeleteOlderThan prunes records dropped before the threshold
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int, error)
}

// CandidateRepository exposes the candidate/student store the status
// aggregator projects over.
type CandidateRepository interface {
	// Save upserts a candidate
	Save(ctx context.Context, c *domain.Candidate) error

	// Counts returns aggregate candidate counts in one pass
	Counts(ctx context.Context) (CandidateCounts, error)
}

// CandidateCounts carries the aggregates a SyncStatus is built from.
type CandidateCounts struct {
	Total    int
	Synced   int
	Verified int
}
