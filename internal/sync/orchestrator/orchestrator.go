package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
	"github.com/fieldsync/agent/internal/sync/classify"
	"github.com/fieldsync/agent/internal/sync/metrics"
	"github.com/fieldsync/agent/internal/sync/monitor"
	"github.com/fieldsync/agent/internal/sync/retry"
)

// Transport replays one operation against the remote authority.
type Transport interface {
	Replay(ctx context.Context, op domain.Operation) error
}

// Queue is the durable operation queue consumed by drains.
type Queue interface {
	DrainSnapshot(ctx context.Context) ([]domain.Operation, error)
	Remove(ctx context.Context, id string) error
	IncrementRetry(ctx context.Context, id string) error
	RecordDrop(ctx context.Context, op domain.Operation, reason string) error
	Size(ctx context.Context) (int, error)
}

// Config holds orchestrator settings.
type Config struct {
	// Interval between periodic drains while foregrounded.
	Interval time.Duration
	// AttemptTimeout bounds each delivery attempt. 0 disables the
	// per-attempt deadline.
	AttemptTimeout time.Duration
	// MaxRetryCount is the queue-level retry ceiling across drains.
	// 0 keeps operations queued indefinitely.
	MaxRetryCount int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	return c
}

// Result summarizes one completed drain.
type Result struct {
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
	Requeued int `json:"requeued"`
}

type drainRun struct {
	done   chan struct{}
	result Result
	err    error
}

// Orchestrator drains the queue on a periodic timer, on the went-online
// edge and on manual triggers. Only one drain is ever active; triggers that
// arrive mid-drain coalesce into it.
type Orchestrator struct {
	queue      Queue
	transport  Transport
	executor   *retry.Executor
	classifier *classify.Classifier
	monitor    *monitor.Monitor
	cfg        Config
	log        *slog.Logger

	// AfterDrain, if set, runs after every completed drain (status
	// recompute + cache). Set before Start.
	AfterDrain func(ctx context.Context)

	runCtx context.Context

	mu       sync.Mutex
	inflight *drainRun
	lastSync *time.Time

	timerMu     sync.Mutex
	timerCancel context.CancelFunc
	nextTick    *time.Time
}

// New creates an orchestrator. The classifier must be the same one the
// executor consults so outer and inner retry decisions agree.
func New(
	q Queue,
	transport Transport,
	executor *retry.Executor,
	classifier *classify.Classifier,
	mon *monitor.Monitor,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		queue:      q,
		transport:  transport,
		executor:   executor,
		classifier: classifier,
		monitor:    mon,
		cfg:        cfg.withDefaults(),
		log:        slog.Default(),
	}
}

// Start wires lifecycle triggers and starts the periodic timer if the app
// is foregrounded. The context bounds all triggered drains.
func (o *Orchestrator) Start(ctx context.Context) {
	o.runCtx = ctx

	o.monitor.OnWentOnline(func() {
		go o.triggerDrain("went-online")
	})
	o.monitor.OnEnteredForeground(func() {
		o.startTimer()
	})
	o.monitor.OnEnteredBackground(func() {
		// In-flight drain, if any, is allowed to finish.
		o.stopTimer()
	})

	if o.monitor.AppState() == monitor.AppStateForeground {
		o.startTimer()
	}
}

// Stop cancels the periodic timer and waits for an in-flight drain.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.stopTimer()

	o.mu.Lock()
	run := o.inflight
	o.mu.Unlock()
	if run == nil {
		return nil
	}

	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncNow performs one full drain and reports its outcome. A call made
// while a drain is active does not start a second one; it waits for the
// in-flight drain and returns its result.
func (o *Orchestrator) SyncNow(ctx context.Context) (Result, error) {
	run, started := o.beginDrain()
	if !started {
		select {
		case <-run.done:
			return run.result, run.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	o.drain(ctx, run, "manual")
	return run.result, run.err
}

// LastSync returns when the last drain completed, nil before the first.
func (o *Orchestrator) LastSync() *time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSync
}

// NextSync returns the next periodic tick, nil while the timer is stopped.
func (o *Orchestrator) NextSync() *time.Time {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	return o.nextTick
}

// triggerDrain runs a drain unless one is already active, in which case it
// coalesces into a no-op: the in-flight drain picks up later enqueues on
// its next run.
func (o *Orchestrator) triggerDrain(trigger string) {
	run, started := o.beginDrain()
	if !started {
		o.log.Debug("drain already active, trigger coalesced", "trigger", trigger)
		return
	}

	ctx := o.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	o.drain(ctx, run, trigger)
}

// beginDrain transitions Idle -> Draining. When already draining it
// returns the active run and false.
func (o *Orchestrator) beginDrain() (*drainRun, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight != nil {
		return o.inflight, false
	}
	run := &drainRun{done: make(chan struct{})}
	o.inflight = run
	return run, true
}

func (o *Orchestrator) drain(ctx context.Context, run *drainRun, trigger string) {
	start := time.Now()
	metrics.DrainsTotal.WithLabelValues(trigger).Inc()
	o.log.Info("drain started", "trigger", trigger)

	defer func() {
		metrics.DrainDuration.Observe(time.Since(start).Seconds())
		if size, err := o.queue.Size(ctx); err == nil {
			metrics.QueueDepth.Set(float64(size))
		}

		now := time.Now().UTC()
		o.mu.Lock()
		// Only a fully processed snapshot counts as a sync; aborted or
		// failed drains must not report one.
		if run.err == nil {
			o.lastSync = &now
		}
		o.inflight = nil
		close(run.done)
		o.mu.Unlock()

		o.log.Info("drain finished",
			"trigger", trigger,
			"synced", run.result.Synced,
			"failed", run.result.Failed,
			"requeued", run.result.Requeued,
			"duration", time.Since(start))

		if o.AfterDrain != nil {
			o.AfterDrain(ctx)
		}
	}()

	snapshot, err := o.queue.DrainSnapshot(ctx)
	if err != nil {
		o.log.Error("drain snapshot failed", "error", err)
		run.err = err
		return
	}

	for _, op := range snapshot {
		if ctx.Err() != nil {
			// Process shutdown; still-pending items survive for the
			// next run.
			run.err = ctx.Err()
			return
		}
		o.processOperation(ctx, op, run)
	}
}

// processOperation attempts delivery of one operation. A single item's
// failure never aborts the drain.
func (o *Orchestrator) processOperation(ctx context.Context, op domain.Operation, run *drainRun) {
	err := o.executor.DoWithRetryAndTimeout(ctx, func(ctx context.Context) error {
		return o.transport.Replay(ctx, op)
	}, o.cfg.AttemptTimeout, func(info retry.AttemptInfo) {
		metrics.AttemptsTotal.WithLabelValues("failure").Inc()
	})

	if err == nil {
		metrics.AttemptsTotal.WithLabelValues("success").Inc()
		if rmErr := o.queue.Remove(ctx, op.ID); rmErr != nil {
			o.log.Error("failed to remove delivered operation", "id", op.ID, "error", rmErr)
		}
		metrics.OperationsSynced.WithLabelValues(string(op.Kind)).Inc()
		run.result.Synced++
		return
	}

	if ctx.Err() != nil {
		return
	}

	if o.classifier.Retryable(err) {
		// Inner retries exhausted; the operation stays queued for the
		// next run unless it hit the cross-drain ceiling.
		if o.cfg.MaxRetryCount > 0 && op.RetryCount+1 > o.cfg.MaxRetryCount {
			o.dropOperation(ctx, op, run, "retry limit exceeded: "+err.Error())
			return
		}
		if incErr := o.queue.IncrementRetry(ctx, op.ID); incErr != nil {
			o.log.Error("failed to increment retry count", "id", op.ID, "error", incErr)
		}
		metrics.OperationsRequeued.WithLabelValues(string(op.Kind)).Inc()
		run.result.Requeued++
		o.log.Warn("operation requeued",
			"id", op.ID, "retry_count", op.RetryCount+1, "error", err)
		return
	}

	o.dropOperation(ctx, op, run, err.Error())
}

func (o *Orchestrator) dropOperation(ctx context.Context, op domain.Operation, run *drainRun, reason string) {
	_ = o.queue.RecordDrop(ctx, op, reason)
	if rmErr := o.queue.Remove(ctx, op.ID); rmErr != nil {
		o.log.Error("failed to remove dropped operation", "id", op.ID, "error", rmErr)
	}
	metrics.OperationsDropped.WithLabelValues(string(op.Kind)).Inc()
	run.result.Failed++
	o.log.Warn("operation dropped", "id", op.ID, "kind", op.Kind, "reason", reason)
}

// startTimer starts the periodic drain timer, canceling any existing one
// first so at most one timer goroutine is ever alive.
func (o *Orchestrator) startTimer() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if o.timerCancel != nil {
		o.timerCancel()
		o.timerCancel = nil
	}

	base := o.runCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	o.timerCancel = cancel

	next := time.Now().Add(o.cfg.Interval)
	o.nextTick = &next

	go o.timerLoop(ctx)
	o.log.Info("sync timer started", "interval", o.cfg.Interval)
}

// stopTimer cancels the periodic timer if one is running.
func (o *Orchestrator) stopTimer() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if o.timerCancel == nil {
		return
	}
	o.timerCancel()
	o.timerCancel = nil
	o.nextTick = nil
	o.log.Info("sync timer stopped")
}

func (o *Orchestrator) timerLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.timerMu.Lock()
			// A fire racing stopTimer may acquire the lock after the
			// cancel; it must not resurrect the schedule.
			if ctx.Err() != nil {
				o.timerMu.Unlock()
				return
			}
			next := time.Now().Add(o.cfg.Interval)
			o.nextTick = &next
			o.timerMu.Unlock()

			o.triggerDrain("timer")
		}
	}
}
