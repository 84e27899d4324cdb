package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldsync/agent/internal/core/config"
	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/infra/redis"
	"github.com/fieldsync/agent/internal/infra/storage"
	"github.com/fieldsync/agent/internal/infra/storage/memory"
	"github.com/fieldsync/agent/internal/infra/storage/postgres"
	"github.com/fieldsync/agent/internal/infra/storage/sqlite"
	"github.com/fieldsync/agent/internal/infra/transport"
	"github.com/fieldsync/agent/internal/sync/classify"
	"github.com/fieldsync/agent/internal/sync/monitor"
	"github.com/fieldsync/agent/internal/sync/orchestrator"
	"github.com/fieldsync/agent/internal/sync/queue"
	"github.com/fieldsync/agent/internal/sync/retry"
	"github.com/fieldsync/agent/internal/sync/status"
)

// pinger is satisfied by both database wrappers.
type pinger interface {
	Health(ctx context.Context) error
	Close() error
}

// Agent owns the sync engine's process-wide lifecycle: storage, transport,
// orchestrator and the health server, wired once in the constructor and torn
// down in Stop.
type Agent struct {
	cfg config.AppConfig

	db           pinger
	redisClient  *redis.Client
	queue        *queue.Service
	executor     *retry.Executor
	classifier   *classify.Classifier
	monitor      *monitor.Monitor
	prober       *monitor.Prober
	orchestrator *orchestrator.Orchestrator
	aggregator   *status.Aggregator
	pruner       *queue.Pruner
	server       *Server
	log          *slog.Logger

	cancel context.CancelFunc
}

// NewAgent creates an Agent with all dependencies initialized.
func NewAgent(ctx context.Context, cfg config.AppConfig) (*Agent, error) {
	var (
		db        pinger
		opRepo    storage.OperationRepository
		dropRepo  storage.DropRepository
		candidate storage.CandidateRepository
	)

	switch cfg.Database.Driver {
	case "postgres":
		pg, err := postgres.NewDB(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		db = pg
		opRepo = postgres.NewOperationRepo(pg)
		dropRepo = postgres.NewDropRepo(pg)
		candidate = postgres.NewCandidateRepo(pg)
		slog.Info("using PostgreSQL storage")
	case "sqlite":
		sq, err := sqlite.NewDB(ctx, cfg.Database.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to init sqlite: %w", err)
		}
		db = sq
		opRepo = sqlite.NewOperationRepo(sq)
		dropRepo = sqlite.NewDropRepo(sq)
		candidate = sqlite.NewCandidateRepo(sq)
		slog.Info("using SQLite storage", "path", cfg.Database.SQLite.Path)
	default:
		store := memory.NewMemoryStorage()
		opRepo = memory.NewOperationRepo(store)
		dropRepo = memory.NewDropRepo(store)
		candidate = memory.NewCandidateRepo(store)
		slog.Info("using memory storage")
	}

	q := queue.NewService(opRepo, dropRepo)
	classifier := classify.New()
	executor := retry.NewExecutor(classifier, cfg.Retry.Policy())

	client := transport.NewClient(transport.Config{
		Token:   cfg.Auth.Token,
		Timeout: cfg.Sync.AttemptTimeout,
	})

	mon := monitor.New()
	prober := monitor.NewProber(monitor.ProbeConfig{
		URL:      cfg.Probe.URL,
		Interval: cfg.Probe.Interval,
	}, mon)

	orch := orchestrator.New(q, client, executor, classifier, mon, orchestrator.Config{
		Interval:       cfg.Sync.Interval,
		AttemptTimeout: cfg.Sync.AttemptTimeout,
		MaxRetryCount:  cfg.Queue.MaxRetryCount,
	})

	var redisClient *redis.Client
	var cache status.Cache
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("failed to connect to redis, status cache disabled", "error", err)
		} else {
			cache = redisClient
		}
	}

	agg := status.NewAggregator(q, candidate, orch, cache)
	orch.AfterDrain = func(ctx context.Context) {
		if _, err := agg.ComputeAndCache(ctx); err != nil {
			slog.Warn("failed to recompute status", "error", err)
		}
	}

	a := &Agent{
		cfg:          cfg,
		db:           db,
		redisClient:  redisClient,
		queue:        q,
		executor:     executor,
		classifier:   classifier,
		monitor:      mon,
		prober:       prober,
		orchestrator: orch,
		aggregator:   agg,
		pruner:       queue.NewPruner(dropRepo, cfg.Queue.DropRetention),
		log:          slog.Default(),
	}
	a.server = NewServer(a, cfg.Server.Port)
	return a, nil
}

// Queue exposes the enqueue API to UI/business callers.
func (a *Agent) Queue() *queue.Service { return a.queue }

// Monitor exposes connectivity/lifecycle observations.
func (a *Agent) Monitor() *monitor.Monitor { return a.monitor }

// Executor exposes the process-wide retry policy.
func (a *Agent) Executor() *retry.Executor { return a.executor }

// SyncNow awaits one full drain.
func (a *Agent) SyncNow(ctx context.Context) (orchestrator.Result, error) {
	return a.orchestrator.SyncNow(ctx)
}

// Status recomputes the sync status summary.
func (a *Agent) Status(ctx context.Context) (domain.SyncStatus, error) {
	return a.aggregator.Compute(ctx)
}

// QueueSize returns the number of pending operations.
func (a *Agent) QueueSize(ctx context.Context) (int, error) {
	return a.queue.Size(ctx)
}

// Start starts the agent and all its background workers.
func (a *Agent) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.orchestrator.Start(ctx)
	go a.prober.Run(ctx)
	go a.pruner.Start(ctx)

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("health server failed", "error", err)
		}
	}()

	a.log.Info("agent started", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts the agent down, letting an in-flight drain finish.
func (a *Agent) Stop(ctx context.Context) error {
	a.log.Info("stopping agent...")

	if err := a.orchestrator.Stop(ctx); err != nil {
		a.log.Warn("drain did not finish before shutdown", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", "error", err)
		}
	}

	return a.server.Stop(ctx)
}
