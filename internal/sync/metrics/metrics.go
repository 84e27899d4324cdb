package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DrainsTotal tracks orchestrator drains by trigger source
	DrainsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_drains_total",
			Help: "Total number of queue drains",
		},
		[]string{"trigger"},
	)

	// OperationsSynced tracks successfully delivered operations
	OperationsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_operations_synced_total",
			Help: "Total number of operations delivered to the authority",
		},
		[]string{"kind"},
	)

	// OperationsDropped tracks operations dropped on terminal failures
	OperationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_operations_dropped_total",
			Help: "Total number of operations permanently dropped",
		},
		[]string{"kind"},
	)

	// OperationsRequeued tracks operations kept queued after exhausted retries
	OperationsRequeued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_operations_requeued_total",
			Help: "Total number of operations left queued for a later drain",
		},
		[]string{"kind"},
	)

	// AttemptsTotal tracks individual delivery attempts
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_attempts_total",
			Help: "Total number of delivery attempts",
		},
		[]string{"outcome"},
	)

	// QueueDepth tracks the current number of pending operations
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_queue_depth",
			Help: "Current number of pending operations",
		},
	)

	// DrainDuration tracks how long a full drain takes
	DrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fieldsync_drain_duration_seconds",
			Help:    "Queue drain duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
