package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/storage"
)

// QueueSizer exposes the pending-operation count.
type QueueSizer interface {
	Size(ctx context.Context) (int, error)
}

// Schedule exposes the orchestrator's drain timing.
type Schedule interface {
	LastSync() *time.Time
	NextSync() *time.Time
}

// Cache persists the last computed snapshot for fast cold-start display.
type Cache interface {
	CacheStatus(ctx context.Context, status domain.SyncStatus) error
	LastStatus(ctx context.Context) (domain.SyncStatus, error)
}

// Aggregator derives SyncStatus from the queue and candidate stores. It is
// a pure projection: never the source of truth for delivery state.
type Aggregator struct {
	queue      QueueSizer
	candidates storage.CandidateRepository
	schedule   Schedule
	cache      Cache // optional
}

// NewAggregator creates an aggregator. cache may be nil.
func NewAggregator(
	queue QueueSizer,
	candidates storage.CandidateRepository,
	schedule Schedule,
	cache Cache,
) *Aggregator {
	return &Aggregator{
		queue:      queue,
		candidates: candidates,
		schedule:   schedule,
		cache:      cache,
	}
}

// Compute rebuilds the status from current store contents.
func (a *Aggregator) Compute(ctx context.Context) (domain.SyncStatus, error) {
	pending, err := a.queue.Size(ctx)
	if err != nil {
		return domain.SyncStatus{}, err
	}

	counts, err := a.candidates.Counts(ctx)
	if err != nil {
		return domain.SyncStatus{}, err
	}

	status := domain.SyncStatus{
		TotalRegistered:     counts.Total,
		Synced:              counts.Synced,
		Pending:             pending,
		Verified:            counts.Verified,
		PendingVerification: counts.Total - counts.Verified,
		LastSync:            a.schedule.LastSync(),
		NextSync:            a.schedule.NextSync(),
	}
	return status, nil
}

// ComputeAndCache recomputes the status and, when a cache is configured,
// persists the snapshot. Cache failures are logged, never propagated: the
// cache is an optimization, not state.
func (a *Aggregator) ComputeAndCache(ctx context.Context) (domain.SyncStatus, error) {
	status, err := a.Compute(ctx)
	if err != nil {
		return domain.SyncStatus{}, err
	}
	if a.cache != nil {
		if cacheErr := a.cache.CacheStatus(ctx, status); cacheErr != nil {
			slog.Warn("failed to cache status snapshot", "error", cacheErr)
		}
	}
	return status, nil
}

// LastCached returns the cached snapshot for cold-start display.
func (a *Aggregator) LastCached(ctx context.Context) (domain.SyncStatus, error) {
	if a.cache == nil {
		return a.Compute(ctx)
	}
	return a.cache.LastStatus(ctx)
}
