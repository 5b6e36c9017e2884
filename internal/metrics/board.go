package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_created_total",
			Help:      "Messages created on this node.",
		},
	)

	messagesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_pruned_total",
			Help:      "Messages removed because they were fully shadowed.",
		},
	)

	submissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Submissions discarded for empty content or selection.",
		},
		[]string{"reason"},
	)

	snapshotsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Gateway snapshots that replaced the local store.",
		},
	)

	boardMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_messages",
			Help:      "Messages currently on the board.",
		},
	)

	gatewayOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_operations_total",
			Help:      "Persistence gateway operations by backend, operation, and result.",
		},
		[]string{"backend", "op", "result"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_breaker_state",
			Help:      "Gateway circuit breaker state (0 closed, 1 open, 2 half-open).",
		},
		[]string{"backend"},
	)

	sessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Live websocket viewer sessions.",
		},
	)
)

// MessageCreated records a successful create and the resulting board size.
func MessageCreated(boardSize int) {
	messagesCreated.Inc()
	boardMessages.Set(float64(boardSize))
}

// MessagesPruned records n shadowed messages removed.
func MessagesPruned(n int) {
	messagesPruned.Add(float64(n))
}

// SubmissionRejected records a discarded submission.
func SubmissionRejected(reason string) {
	submissionsRejected.WithLabelValues(reason).Inc()
}

// SnapshotApplied records an inbound snapshot of the given size.
func SnapshotApplied(boardSize int) {
	snapshotsApplied.Inc()
	boardMessages.Set(float64(boardSize))
}

// GatewayOp records one gateway call.
func GatewayOp(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	gatewayOps.WithLabelValues(backend, op, result).Inc()
}

// BreakerState records the breaker state for a backend.
func BreakerState(backend string, state int) {
	breakerState.WithLabelValues(backend).Set(float64(state))
}

// SessionOpened and SessionClosed track live viewer sessions.
func SessionOpened() { sessionsOpen.Inc() }
func SessionClosed() { sessionsOpen.Dec() }
