package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Metrics for the rank-everything coordination server.
//
// Naming convention: namespace_subsystem_name
// - namespace: rank_everything (application-level grouping)
// - subsystem: websocket, room, command, itemstore, emoji, circuit_breaker,
//   rate_limit (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: current state (connections, rooms, players)
// - Counter: cumulative events (commands processed, errors)
// - Histogram: latency distributions (command/provider duration)

var (
	// ActiveWebSocketConnections tracks the current number of live
	// websocket subscribers across all rooms.
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rank_everything",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of live rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rank_everything",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players currently in each room.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rank_everything",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_code"})

	// WebsocketEvents tracks the total number of websocket client messages
	// processed, per type and outcome.
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rank_everything",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// CommandDuration tracks time spent handling one room command, measured
	// by the HTTP or websocket handler around its call into the Room.
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rank_everything",
		Subsystem: "command",
		Name:      "duration_seconds",
		Help:      "Time spent executing a room command",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"command"})

	// CircuitBreakerState tracks the current state of a named circuit
	// breaker (0: Closed, 1: Open, 2: Half-Open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rank_everything",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"service"})

	// CircuitBreakerFailures counts how many times a breaker has tripped
	// into the open state.
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rank_everything",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total number of times the circuit breaker transitioned to open",
	}, []string{"service"})

	// RateLimitExceeded tracks requests rejected by the rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rank_everything",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests tracks requests checked against the rate limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rank_everything",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	// ItemStoreOperations tracks calls into the external item store adapter.
	ItemStoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rank_everything",
		Subsystem: "itemstore",
		Name:      "operations_total",
		Help:      "Total number of item store operations",
	}, []string{"operation", "status"})

	// ItemStoreOperationDuration tracks item store adapter call latency.
	ItemStoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rank_everything",
		Subsystem: "itemstore",
		Name:      "operation_duration_seconds",
		Help:      "Duration of item store operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// EmojiProviderRequests tracks calls into the emoji assignment provider.
	EmojiProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rank_everything",
		Subsystem: "emoji",
		Name:      "requests_total",
		Help:      "Total number of emoji provider requests",
	}, []string{"status"})

	// EmojiProviderDuration tracks emoji provider call latency.
	EmojiProviderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rank_everything",
		Subsystem: "emoji",
		Name:      "request_duration_seconds",
		Help:      "Duration of emoji provider requests",
		Buckets:   prometheus.DefBuckets,
	})

	// EmojiBudgetRemaining tracks the process-wide daily emoji-provider
	// budget remaining.
	EmojiBudgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rank_everything",
		Subsystem: "emoji",
		Name:      "budget_remaining",
		Help:      "Remaining daily emoji provider call budget",
	})
)

// IncConnection records one new live websocket connection.
func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

// DecConnection records one closed websocket connection.
func DecConnection() {
	ActiveWebSocketConnections.Dec()
}

// SetCircuitBreakerState records a named breaker's current gobreaker.State.
func SetCircuitBreakerState(service string, state gobreaker.State) {
	CircuitBreakerState.WithLabelValues(service).Set(float64(state))
	if state == gobreaker.StateOpen {
		CircuitBreakerFailures.WithLabelValues(service).Inc()
	}
}

// ObserveItemStoreOp records the outcome and latency of one item store
// adapter call.
func ObserveItemStoreOp(operation string, d time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	ItemStoreOperations.WithLabelValues(operation, status).Inc()
	ItemStoreOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveEmojiProviderCall records the outcome and latency of one emoji
// provider call.
func ObserveEmojiProviderCall(d time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	EmojiProviderRequests.WithLabelValues(status).Inc()
	EmojiProviderDuration.Observe(d.Seconds())
}
