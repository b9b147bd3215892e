package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ordersTotal,
		orderSubmitLatencyMs,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order submissions by status (submitted/failed).",
		},
		[]string{"status"},
	)

	orderSubmitLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_submit_latency_ms",
			Help:    "Order service call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"success"},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveOrderSubmit(latencyMs int, success bool) {
	orderSubmitLatencyMs.WithLabelValues(strconv.FormatBool(success)).Observe(float64(latencyMs))
}
