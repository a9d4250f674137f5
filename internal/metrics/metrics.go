// Package metrics implements Prometheus metrics for the pipeline engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsTotal counts items that reached a terminal state, by pipeline and state.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warrior_pipeline_items_total",
			Help: "Total number of items that reached a terminal state",
		},
		[]string{"pipeline", "state"},
	)

	// ItemsActive tracks items currently in flight.
	ItemsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warrior_pipeline_items_active",
			Help: "Number of items currently admitted and in flight",
		},
	)

	// TaskInvocationsTotal counts task executions by task name and outcome.
	TaskInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warrior_pipeline_task_invocations_total",
			Help: "Total number of task invocations",
		},
		[]string{"task", "outcome"},
	)

	// TaskRetriesTotal counts retry attempts by task name.
	TaskRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warrior_pipeline_task_retries_total",
			Help: "Total number of task retry attempts",
		},
		[]string{"task"},
	)

	// TaskLatencySeconds measures how long a task takes to reach a terminal event.
	TaskLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warrior_pipeline_task_latency_seconds",
			Help:    "Latency of task execution in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		},
		[]string{"task"},
	)

	// TaskStatus tracks the current status of each in-flight task, keyed by item id.
	TaskStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warrior_pipeline_task_status",
			Help: "Current status of a task for an item (0=idle, 1=running, 2=error)",
		},
		[]string{"task", "item_id"},
	)

	// ExternalProcessRestartsTotal counts subprocess restarts after retryable exit codes.
	ExternalProcessRestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warrior_pipeline_external_process_restarts_total",
			Help: "Total number of ExternalProcess restarts after a retryable failure",
		},
		[]string{"task"},
	)

	// TrackerRequestsTotal counts tracker HTTP requests by endpoint and status class.
	TrackerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warrior_pipeline_tracker_requests_total",
			Help: "Total number of tracker HTTP requests",
		},
		[]string{"endpoint", "status_class"},
	)

	// LimitConcurrentQueueDepth tracks how many items are waiting for an admission slot.
	LimitConcurrentQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warrior_pipeline_limit_concurrent_queue_depth",
			Help: "Number of items queued behind a LimitConcurrent task",
		},
		[]string{"task"},
	)
)

// TaskStatusValue is the numeric value written into the TaskStatus gauge.
const (
	TaskStatusIdle    = 0
	TaskStatusRunning = 1
	TaskStatusError   = 2
)

// Outcome labels for TaskInvocationsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCancel  = "cancel"
)
