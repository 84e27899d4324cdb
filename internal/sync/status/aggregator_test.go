package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/storage"
	"github.com/fieldsync/agent/internal/infra/storage/memory"
)

type stubQueue struct {
	size int
	err  error
}

func (q *stubQueue) Size(ctx context.Context) (int, error) { return q.size, q.err }

type stubSchedule struct {
	last *time.Time
	next *time.Time
}

func (s *stubSchedule) LastSync() *time.Time { return s.last }
func (s *stubSchedule) NextSync() *time.Time { return s.next }

type stubCache struct {
	stored  *domain.SyncStatus
	cacheErr error
	lastErr error
}

func (c *stubCache) CacheStatus(ctx context.Context, status domain.SyncStatus) error {
	if c.cacheErr != nil {
		return c.cacheErr
	}
	c.stored = &status
	return nil
}

func (c *stubCache) LastStatus(ctx context.Context) (domain.SyncStatus, error) {
	if c.lastErr != nil {
		return domain.SyncStatus{}, c.lastErr
	}
	if c.stored == nil {
		return domain.SyncStatus{}, errors.New("no snapshot")
	}
	return *c.stored, nil
}

func seedCandidates(t *testing.T, repo storage.CandidateRepository) {
	t.Helper()
	ctx := context.Background()
	candidates := []domain.Candidate{
		{ID: "c1", Name: "Ada", Synced: true, Verified: true},
		{ID: "c2", Name: "Ben", Synced: true, Verified: false},
		{ID: "c3", Name: "Cleo", Synced: false, Verified: false},
	}
	for i := range candidates {
		if err := repo.Save(ctx, &candidates[i]); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestCompute(t *testing.T) {
	store := memory.NewMemoryStorage()
	candidates := memory.NewCandidateRepo(store)
	seedCandidates(t, candidates)

	last := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	next := last.Add(time.Minute)
	agg := NewAggregator(&stubQueue{size: 4}, candidates, &stubSchedule{last: &last, next: &next}, nil)

	got, err := agg.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if got.TotalRegistered != 3 || got.Synced != 2 || got.Verified != 1 {
		t.Errorf("candidate counts wrong: %+v", got)
	}
	if got.Pending != 4 {
		t.Errorf("pending = %d, want 4", got.Pending)
	}
	if got.PendingVerification != 2 {
		t.Errorf("pending verification = %d, want 2", got.PendingVerification)
	}
	if got.LastSync == nil || !got.LastSync.Equal(last) {
		t.Errorf("last sync = %v, want %v", got.LastSync, last)
	}
	if got.NextSync == nil || !got.NextSync.Equal(next) {
		t.Errorf("next sync = %v, want %v", got.NextSync, next)
	}
}

func TestCompute_NilTimesPassThrough(t *testing.T) {
	store := memory.NewMemoryStorage()
	agg := NewAggregator(&stubQueue{}, memory.NewCandidateRepo(store), &stubSchedule{}, nil)

	got, err := agg.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got.LastSync != nil || got.NextSync != nil {
		t.Errorf("expected nil sync times before any drain, got %+v", got)
	}
}

func TestCompute_QueueErrorPropagates(t *testing.T) {
	store := memory.NewMemoryStorage()
	agg := NewAggregator(&stubQueue{err: errors.New("store offline")},
		memory.NewCandidateRepo(store), &stubSchedule{}, nil)

	if _, err := agg.Compute(context.Background()); err == nil {
		t.Fatal("expected the queue error to propagate")
	}
}

func TestComputeAndCache_StoresSnapshot(t *testing.T) {
	store := memory.NewMemoryStorage()
	candidates := memory.NewCandidateRepo(store)
	seedCandidates(t, candidates)
	cache := &stubCache{}
	agg := NewAggregator(&stubQueue{size: 1}, candidates, &stubSchedule{}, cache)

	got, err := agg.ComputeAndCache(context.Background())
	if err != nil {
		t.Fatalf("ComputeAndCache failed: %v", err)
	}
	if cache.stored == nil {
		t.Fatal("snapshot was not cached")
	}
	if *cache.stored != got {
		t.Errorf("cached snapshot differs: %+v vs %+v", *cache.stored, got)
	}
}

func TestComputeAndCache_CacheFailureIsSwallowed(t *testing.T) {
	store := memory.NewMemoryStorage()
	cache := &stubCache{cacheErr: errors.New("redis down")}
	agg := NewAggregator(&stubQueue{}, memory.NewCandidateRepo(store), &stubSchedule{}, cache)

	if _, err := agg.ComputeAndCache(context.Background()); err != nil {
		t.Fatalf("cache failure must not propagate, got %v", err)
	}
}

func TestLastCached_FallsBackToComputeWithoutCache(t *testing.T) {
	store := memory.NewMemoryStorage()
	candidates := memory.NewCandidateRepo(store)
	seedCandidates(t, candidates)
	agg := NewAggregator(&stubQueue{size: 2}, candidates, &stubSchedule{}, nil)

	got, err := agg.LastCached(context.Background())
	if err != nil {
		t.Fatalf("LastCached failed: %v", err)
	}
	if got.TotalRegistered != 3 || got.Pending != 2 {
		t.Errorf("unexpected computed fallback: %+v", got)
	}
}
