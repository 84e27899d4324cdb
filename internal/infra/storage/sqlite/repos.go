package sqlite

import (
	"context"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/storage"
)

type OperationRepo struct {
	db *DB
}

func NewOperationRepo(db *DB) *OperationRepo {
	return &OperationRepo{db: db}
}

func (r *OperationRepo) Append(ctx context.Context, op *domain.Operation) error {
	query := `
		INSERT INTO pending_operations (id, kind, endpoint, method, payload, enqueued_at, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	return retryWrite(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query,
			op.ID, op.Kind, op.Endpoint, op.Method, []byte(op.Payload),
			op.EnqueuedAt, op.RetryCount)
		return err
	})
}

func (r *OperationRepo) List(ctx context.Context) ([]domain.Operation, error) {
	query := `
		SELECT id, kind, endpoint, method, payload, enqueued_at, retry_count
		FROM pending_operations ORDER BY seq ASC
	`
	var ops []domain.Operation
	if err := r.db.SelectContext(ctx, &ops, query); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *OperationRepo) Remove(ctx context.Context, id string) error {
	return retryWrite(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			"DELETE FROM pending_operations WHERE id = ?", id)
		return err
	})
}

func (r *OperationRepo) IncrementRetry(ctx context.Context, id string) error {
	return retryWrite(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			"UPDATE pending_operations SET retry_count = retry_count + 1 WHERE id = ?", id)
		return err
	})
}

func (r *OperationRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT count(*) FROM pending_operations")
	return count, err
}

type DropRepo struct {
	db *DB
}

func NewDropRepo(db *DB) *DropRepo {
	return &DropRepo{db: db}
}

func (r *DropRepo) Add(ctx context.Context, rec *domain.DropRecord) error {
	query := `
		INSERT INTO dropped_operations (operation_id, kind, endpoint, reason, dropped_at)
		VALUES (?, ?, ?, ?, ?)
	`
	return retryWrite(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query,
			rec.OperationID, rec.Kind, rec.Endpoint, rec.Reason, rec.DroppedAt)
		return err
	})
}

func (r *DropRepo) List(ctx context.Context, limit int) ([]domain.DropRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT operation_id, kind, endpoint, reason, dropped_at
		FROM dropped_operations ORDER BY dropped_at DESC LIMIT ?
	`
	var recs []domain.DropRecord
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *DropRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int, error) {
	var deleted int64
	err := retryWrite(ctx, func() error {
		res, err := r.db.ExecContext(ctx,
			"DELETE FROM dropped_operations WHERE dropped_at < ?", threshold)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return int(deleted), err
}

type CandidateRepo struct {
	db *DB
}

func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

func (r *CandidateRepo) Save(ctx context.Context, c *domain.Candidate) error {
	query := `
		INSERT INTO candidates (id, name, synced, verified, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			synced = excluded.synced,
			verified = excluded.verified
	`
	return retryWrite(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query,
			c.ID, c.Name, c.Synced, c.Verified, c.RegisteredAt)
		return err
	})
}

func (r *CandidateRepo) Counts(ctx context.Context) (storage.CandidateCounts, error) {
	query := `
		SELECT
			count(*) AS total,
			coalesce(sum(synced), 0) AS synced,
			coalesce(sum(verified), 0) AS verified
		FROM candidates
	`
	var row struct {
		Total    int `db:"total"`
		Synced   int `db:"synced"`
		Verified int `db:"verified"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return storage.CandidateCounts{}, err
	}
	return storage.CandidateCounts{
		Total:    row.Total,
		Synced:   row.Synced,
		Verified: row.Verified,
	}, nil
}
