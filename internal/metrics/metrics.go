package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Live Channel Metrics
var (
	// LiveConnectionsCurrent tracks current registered live connections by role
	LiveConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "live_connections_current",
			Help: "Current number of registered live connections by role (subscriber/source)",
		},
		[]string{"role"},
	)

	// LiveConnectionsTotal tracks total live connection attempts by result
	LiveConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_connections_total",
			Help: "Total live connection attempts by result (accepted/rejected)",
		},
		[]string{"result"},
	)

	// LiveConnectionsRejected tracks rejected connection attempts by reason
	LiveConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_connections_rejected_total",
			Help: "Total live connections rejected by reason (rate_limit/per_ip_limit/global_limit)",
		},
		[]string{"reason"},
	)

	// BroadcastsTotal tracks broadcast fan-outs by target role
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Total broadcast fan-outs by target role",
		},
		[]string{"role"},
	)

	// SlowConnectionsEvicted tracks connections evicted because their send queue filled
	SlowConnectionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_slow_connections_evicted_total",
			Help: "Total live connections evicted due to a full send queue",
		},
	)

	// LiveMessageSendDuration tracks per-frame write duration
	LiveMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "live_message_send_duration_seconds",
			Help:    "Live channel frame write duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// LiveSendFailures tracks frame writes that failed mid-broadcast
	LiveSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_send_failures_total",
			Help: "Total live channel frame write failures (connection treated as lost)",
		},
	)

	// LivePingFailures tracks keepalive ping failures
	LivePingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_ping_failures_total",
			Help: "Total live channel ping failures (peer not responding)",
		},
	)

	// CommandsReceived tracks decoded inbound commands by kind
	CommandsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_commands_received_total",
			Help: "Total inbound live channel commands by kind (keepalive/event/unknown/malformed)",
		},
		[]string{"kind"},
	)
)

// Record Merge Metrics
var (
	// MergeDiagnosticsTotal tracks pairings referencing assignments absent from the assignment table
	MergeDiagnosticsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merge_diagnostics_total",
			Help: "Total orphaned pairing records skipped during assignment merges",
		},
	)
)

// Event Journal Metrics
var (
	// JournalAppendsTotal tracks journal appends by status
	JournalAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_appends_total",
			Help: "Total event journal appends by status (success/error)",
		},
		[]string{"status"},
	)

	// JournalReplaysTotal tracks initial snapshot replays served to new connections
	JournalReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_replays_total",
			Help: "Total initial snapshot replays served to newly opened connections",
		},
	)
)

// Redis Operations Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by the internal/errors package
