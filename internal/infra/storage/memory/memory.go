package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/storage"
)

// MemoryStorage backs the repositories with in-process state. Used when no
// database is configured and throughout the test suite.
type MemoryStorage struct {
	mu         sync.RWMutex
	operations []domain.Operation
	drops      []domain.DropRecord
	candidates map[string]domain.Candidate
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		candidates: make(map[string]domain.Candidate),
	}
}

// -----------------------------------------------------------------------------
// Operation Repository
// -----------------------------------------------------------------------------

type OperationRepo struct {
	store *MemoryStorage
}

func NewOperationRepo(store *MemoryStorage) *OperationRepo {
	return &OperationRepo{store: store}
}

func (r *OperationRepo) Append(ctx context.Context, op *domain.Operation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.operations = append(r.store.operations, *op)
	return nil
}

func (r *OperationRepo) List(ctx context.Context) ([]domain.Operation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.Operation, len(r.store.operations))
	copy(out, r.store.operations)
	return out, nil
}

func (r *OperationRepo) Remove(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, op := range r.store.operations {
		if op.ID == id {
			r.store.operations = append(
				r.store.operations[:i],
				r.store.operations[i+1:]...,
			)
			return nil
		}
	}
	return nil
}

func (r *OperationRepo) IncrementRetry(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.operations {
		if r.store.operations[i].ID == id {
			r.store.operations[i].RetryCount++
			return nil
		}
	}
	return nil
}

func (r *OperationRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.operations), nil
}

// -----------------------------------------------------------------------------
// Drop Repository
// -----------------------------------------------------------------------------

type DropRepo struct {
	store *MemoryStorage
}

func NewDropRepo(store *MemoryStorage) *DropRepo {
	return &DropRepo{store: store}
}

func (r *DropRepo) Add(ctx context.Context, rec *domain.DropRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.drops = append(r.store.drops, *rec)
	return nil
}

func (r *DropRepo) List(ctx context.Context, limit int) ([]domain.DropRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.DropRecord, 0, len(r.store.drops))
	for i := len(r.store.drops) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.store.drops[i])
	}
	return out, nil
}

func (r *DropRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.drops[:0]
	deleted := 0
	for _, d := range r.store.drops {
		if d.DroppedAt.Before(threshold) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	r.store.drops = kept
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Candidate Repository
// -----------------------------------------------------------------------------

type CandidateRepo struct {
	store *MemoryStorage
}

func NewCandidateRepo(store *MemoryStorage) *CandidateRepo {
	return &CandidateRepo{store: store}
}

func (r *CandidateRepo) Save(ctx context.Context, c *domain.Candidate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.candidates[c.ID] = *c
	return nil
}

func (r *CandidateRepo) Counts(ctx context.Context) (storage.CandidateCounts, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var counts storage.CandidateCounts
	for _, c := range r.store.candidates {
		counts.Total++
		if c.Synced {
			counts.Synced++
		}
		if c.Verified {
			counts.Verified++
		}
	}
	return counts, nil
}
