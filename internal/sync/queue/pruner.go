package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldsync/agent/internal/infra/storage"
)

// Pruner deletes old drop records based on the retention policy.
type Pruner struct {
	drops     storage.DropRepository
	retention time.Duration
}

// NewPruner creates a new Pruner worker. A zero retention keeps records
// forever; Start then returns immediately.
func NewPruner(drops storage.DropRepository, retention time.Duration) *Pruner {
	return &Pruner{drops: drops, retention: retention}
}

// Start runs the pruner loop until the context is canceled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := time.Now().Add(-p.retention)
	deleted, err := p.drops.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("failed to prune drop records", "error", err)
		return
	}
	if deleted > 0 {
		slog.Debug("pruned drop records", "count", deleted)
	}
}
