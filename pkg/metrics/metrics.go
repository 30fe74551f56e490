package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CascadeOperations counts propagation cascades by operation and outcome (success|failure).
	CascadeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainloop_cascade_operations_total",
			Help: "Total number of team propagation cascade operations",
		},
		[]string{"operation", "result"},
	)

	// GrantWrites counts grant rows written or removed per layer (workspace|brain|chat) and action (insert|update|delete).
	GrantWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainloop_grant_writes_total",
			Help: "Total number of access grant mutations",
		},
		[]string{"layer", "action"},
	)

	// NotificationQueueDepth tracks pending events in the notification dispatcher.
	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brainloop_notification_queue_depth",
			Help: "Number of notification events waiting for dispatch",
		},
	)

	// NotificationDrops counts events dropped because the dispatch queue was full.
	NotificationDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brainloop_notification_drops_total",
			Help: "Total number of notification events dropped at enqueue",
		},
	)

	// AuthAttempts counts login attempts by outcome (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainloop_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brainloop_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
