package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		dialogTransitionsTotal,
		dialogValidationFailuresTotal,
		dialogActiveSessions,
		dialogEvictedTotal,
	)
}

var (
	dialogTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_transitions_total",
			Help: "Dialog step changes, labeled by source and target step.",
		},
		[]string{"from", "to"},
	)

	dialogValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_validation_failures_total",
			Help: "Rejected name or phone inputs, labeled by error kind.",
		},
		[]string{"kind"},
	)

	dialogActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dialog_sessions",
			Help: "Number of participants with a dialog state held in memory.",
		},
	)

	dialogEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dialog_sessions_evicted_total",
			Help: "Dialog states dropped after sitting idle.",
		},
	)
)

func IncDialogTransition(from, to string) {
	dialogTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncValidationFailure(kind string) {
	dialogValidationFailuresTotal.WithLabelValues(norm(kind)).Inc()
}

func SetDialogSessions(n int) {
	dialogActiveSessions.Set(float64(n))
}

func AddDialogEvicted(n int) {
	dialogEvictedTotal.Add(float64(n))
}
