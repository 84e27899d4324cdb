package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/storage"
	"github.com/fieldsync/agent/internal/infra/storage/memory"
)

func newTestService() (*Service, *memory.MemoryStorage) {
	store := memory.NewMemoryStorage()
	return NewService(memory.NewOperationRepo(store), memory.NewDropRepo(store)), store
}

func TestEnqueue_AssignsUniqueIDsAndPreservesFIFO(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ids := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id, err := svc.Enqueue(ctx, domain.KindAttendanceSync,
			"https://authority.example/attendance", "POST",
			json.RawMessage(`{"n":1}`))
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if ids[id] {
			t.Fatalf("duplicate id %s", id)
		}
		ids[id] = true
	}

	snapshot, err := svc.DrainSnapshot(ctx)
	if err != nil {
		t.Fatalf("DrainSnapshot failed: %v", err)
	}
	if len(snapshot) != 5 {
		t.Fatalf("expected 5 operations, got %d", len(snapshot))
	}
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].EnqueuedAt.Before(snapshot[i-1].EnqueuedAt) {
			t.Error("snapshot not in FIFO order")
		}
	}
}

func TestSize_TracksEnqueuesMinusRemovals(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := svc.Enqueue(ctx, domain.KindVerificationSync,
			"https://authority.example/verify", "POST", json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		ids = append(ids, id)
	}

	if size, _ := svc.Size(ctx); size != 4 {
		t.Errorf("size = %d, want 4", size)
	}

	if err := svc.Remove(ctx, ids[0]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := svc.Remove(ctx, ids[2]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if size, _ := svc.Size(ctx); size != 2 {
		t.Errorf("size = %d, want 2", size)
	}
}

func TestRemoveAndIncrementRetry_AbsentIDIsNoOp(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.Remove(ctx, "no-such-id"); err != nil {
		t.Errorf("Remove of absent id should be a no-op, got %v", err)
	}
	if err := svc.IncrementRetry(ctx, "no-such-id"); err != nil {
		t.Errorf("IncrementRetry of absent id should be a no-op, got %v", err)
	}
}

func TestIncrementRetry_PersistsAcrossSnapshots(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Enqueue(ctx, domain.KindAttendanceSync,
		"https://authority.example/attendance", "POST", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := svc.IncrementRetry(ctx, id); err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}
	if err := svc.IncrementRetry(ctx, id); err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}

	snapshot, _ := svc.DrainSnapshot(ctx)
	if len(snapshot) != 1 || snapshot[0].RetryCount != 2 {
		t.Errorf("expected retry_count 2, got %+v", snapshot)
	}
}

func TestRecordDrop(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	op := domain.Operation{
		ID:       "op-1",
		Kind:     domain.KindAttendanceSync,
		Endpoint: "https://authority.example/attendance",
	}
	if err := svc.RecordDrop(ctx, op, "authority returned 404"); err != nil {
		t.Fatalf("RecordDrop failed: %v", err)
	}

	drops, err := svc.Drops(ctx, 10)
	if err != nil {
		t.Fatalf("Drops failed: %v", err)
	}
	if len(drops) != 1 {
		t.Fatalf("expected 1 drop record, got %d", len(drops))
	}
	if drops[0].OperationID != "op-1" || drops[0].Reason != "authority returned 404" {
		t.Errorf("unexpected drop record: %+v", drops[0])
	}
}

// failingOpsRepo simulates a broken backing store.
type failingOpsRepo struct{}

func (r *failingOpsRepo) Append(ctx context.Context, op *domain.Operation) error {
	return errors.New("disk full")
}
func (r *failingOpsRepo) List(ctx context.Context) ([]domain.Operation, error) {
	return nil, errors.New("disk full")
}
func (r *failingOpsRepo) Remove(ctx context.Context, id string) error {
	return errors.New("disk full")
}
func (r *failingOpsRepo) IncrementRetry(ctx context.Context, id string) error {
	return errors.New("disk full")
}
func (r *failingOpsRepo) Count(ctx context.Context) (int, error) {
	return 0, errors.New("disk full")
}

func TestEnqueue_PersistenceFailureSurfaces(t *testing.T) {
	store := memory.NewMemoryStorage()
	svc := NewService(&failingOpsRepo{}, memory.NewDropRepo(store))

	_, err := svc.Enqueue(context.Background(), domain.KindAttendanceSync,
		"https://authority.example/attendance", "POST", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected persistence error")
	}

	var perr *storage.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("expected *storage.PersistenceError, got %T", err)
	}
}

func TestPruner_DeletesOldDrops(t *testing.T) {
	store := memory.NewMemoryStorage()
	drops := memory.NewDropRepo(store)
	ctx := context.Background()

	old := &domain.DropRecord{
		OperationID: "old",
		DroppedAt:   time.Now().Add(-48 * time.Hour),
	}
	fresh := &domain.DropRecord{
		OperationID: "fresh",
		DroppedAt:   time.Now(),
	}
	_ = drops.Add(ctx, old)
	_ = drops.Add(ctx, fresh)

	p := NewPruner(drops, 24*time.Hour)
	p.prune(ctx)

	recs, _ := drops.List(ctx, 10)
	if len(recs) != 1 || recs[0].OperationID != "fresh" {
		t.Errorf("expected only fresh record to survive, got %+v", recs)
	}
}
