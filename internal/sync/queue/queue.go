package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/storage"
)

// Service is the durable operation queue. Every mutation is persisted
// before the call returns, so a crash mid-drain leaves the store consistent
// with the last completed mutation. Enqueue may run concurrently with a
// drain; the repository makes each mutation individually atomic.
type Service struct {
	ops   storage.OperationRepository
	drops storage.DropRepository
	log   *slog.Logger
}

// NewService creates the queue service over a backing repository.
func NewService(ops storage.OperationRepository, drops storage.DropRepository) *Service {
	return &Service{
		ops:   ops,
		drops: drops,
		log:   slog.Default(),
	}
}

// Enqueue assigns an id, appends the operation and persists it. A
// persistence failure surfaces to the caller as *storage.PersistenceError
// so the UI can report that the action was not durably recorded.
func (s *Service) Enqueue(
	ctx context.Context,
	kind domain.OperationKind,
	endpoint, method string,
	payload json.RawMessage,
) (string, error) {
	op := &domain.Operation{
		ID:         uuid.NewString(),
		Kind:       kind,
		Endpoint:   endpoint,
		Method:     method,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := s.ops.Append(ctx, op); err != nil {
		return "", &storage.PersistenceError{Op: "enqueue", Err: err}
	}

	s.log.Debug("operation enqueued", "id", op.ID, "kind", op.Kind, "endpoint", op.Endpoint)
	return op.ID, nil
}

// DrainSnapshot returns a consistent point-in-time copy of the queue in
// FIFO order. Mutation during iteration never corrupts the scan.
func (s *Service) DrainSnapshot(ctx context.Context) ([]domain.Operation, error) {
	ops, err := s.ops.List(ctx)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "snapshot", Err: err}
	}
	return ops, nil
}

// Remove deletes an operation. Removing an absent id is a no-op, which
// guards against double-processing races.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.ops.Remove(ctx, id); err != nil {
		return &storage.PersistenceError{Op: "remove", Err: err}
	}
	return nil
}

// IncrementRetry bumps the cross-drain retry counter. Incrementing an
// absent id is a no-op.
func (s *Service) IncrementRetry(ctx context.Context, id string) error {
	if err := s.ops.IncrementRetry(ctx, id); err != nil {
		return &storage.PersistenceError{Op: "increment-retry", Err: err}
	}
	return nil
}

// Size returns the number of pending operations.
func (s *Service) Size(ctx context.Context) (int, error) {
	count, err := s.ops.Count(ctx)
	if err != nil {
		return 0, &storage.PersistenceError{Op: "count", Err: err}
	}
	return count, nil
}

// RecordDrop persists the reason an operation was permanently dropped.
func (s *Service) RecordDrop(ctx context.Context, op domain.Operation, reason string) error {
	rec := &domain.DropRecord{
		OperationID: op.ID,
		Kind:        op.Kind,
		Endpoint:    op.Endpoint,
		Reason:      reason,
		DroppedAt:   time.Now().UTC(),
	}
	if err := s.drops.Add(ctx, rec); err != nil {
		// The drop trail is observability, not durability; log and move on.
		s.log.Warn("failed to record drop", "id", op.ID, "error", err)
		return err
	}
	return nil
}

// Drops returns recent drop records, newest first.
func (s *Service) Drops(ctx context.Context, limit int) ([]domain.DropRecord, error) {
	return s.drops.List(ctx, limit)
}
