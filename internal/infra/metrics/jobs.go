package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(updatesProcessedTotal) }

var updatesProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "telegram_updates_processed_total",
		Help: "Total number of Telegram updates handled by the worker pool, labeled by status.",
	},
	[]string{"status"}, // 'ok', 'failed', 'dropped'
)

func IncUpdateProcessed(status string) {
	updatesProcessedTotal.WithLabelValues(norm(status)).Inc()
}
