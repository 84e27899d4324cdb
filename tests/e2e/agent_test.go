package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldsync/agent/internal/control"
	"github.com/fieldsync/agent/internal/core/config"
	"github.com/fieldsync/agent/internal/core/domain"
)

// testConfig wires the agent against an httptest authority with in-memory
// storage. Port 0 lets the health server pick a free port.
func testConfig() config.AppConfig {
	return config.AppConfig{
		Auth: config.AuthConfig{Token: "e2e-token"},
		Sync: config.SyncConfig{
			Interval:       time.Hour,
			AttemptTimeout: 5 * time.Second,
		},
		Retry: config.RetryConfig{
			MaxRetries:        2,
			InitialDelay:      time.Millisecond,
			MaxDelay:          4 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
		Queue: config.QueueConfig{MaxRetryCount: 25},
	}
}

func TestEnqueueSyncShutdown(t *testing.T) {
	var received atomic.Int64
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer e2e-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer authority.Close()

	ctx := context.Background()
	agent, err := control.NewAgent(ctx, testConfig())
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}

	if err := agent.Start(ctx); err != nil {
		t.Fatalf("failed to start agent: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := agent.Queue().Enqueue(ctx, domain.KindAttendanceSync,
			authority.URL+"/attendance", "POST",
			json.RawMessage(`{"candidate_id":"c1","present":true}`))
		if err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	res, err := agent.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if res.Synced != 3 || res.Failed != 0 || res.Requeued != 0 {
		t.Errorf("result = %+v, want 3 synced", res)
	}
	if got := received.Load(); got != 3 {
		t.Errorf("authority received %d requests, want 3", got)
	}

	st, err := agent.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Pending != 0 {
		t.Errorf("pending = %d, want 0 after drain", st.Pending)
	}
	if st.LastSync == nil {
		t.Error("last sync should be set after a drain")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := agent.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestOfflineOperationsSurviveUntilOnline(t *testing.T) {
	var reachable atomic.Bool
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reachable.Load() {
			// Simulate the field network being down.
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer authority.Close()

	ctx := context.Background()
	agent, err := control.NewAgent(ctx, testConfig())
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	if err := agent.Start(ctx); err != nil {
		t.Fatalf("failed to start agent: %v", err)
	}
	defer agent.Stop(context.Background())

	if _, err := agent.Queue().Enqueue(ctx, domain.KindVerificationSync,
		authority.URL+"/verify", "POST",
		json.RawMessage(`{"candidate_id":"c1","match":true}`)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	res, err := agent.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if res.Requeued != 1 {
		t.Fatalf("result = %+v, want 1 requeued while unreachable", res)
	}
	if size, _ := agent.QueueSize(ctx); size != 1 {
		t.Fatalf("operation should survive a failed drain, queue size = %d", size)
	}

	reachable.Store(true)
	res, err = agent.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if res.Synced != 1 {
		t.Errorf("result = %+v, want 1 synced once reachable", res)
	}
	if size, _ := agent.QueueSize(ctx); size != 0 {
		t.Errorf("queue size = %d, want 0", size)
	}
}
