package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts ticks that reached an active order bucket.
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triggers_ticks_evaluated_total",
			Help: "Ticks evaluated against at least one active order",
		},
		[]string{"symbol"},
	)

	// TickEvaluationDuration tracks how long one tick scan takes.
	TickEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triggers_tick_evaluation_seconds",
			Help:    "Time to evaluate every active order for one tick",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	// OrdersTriggeredTotal counts triggers by order type.
	OrdersTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triggers_orders_triggered_total",
			Help: "Orders triggered by type",
		},
		[]string{"type"},
	)

	// ExecutionsTotal counts downstream executions by result.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triggers_executions_total",
			Help: "Executions of triggered orders by result",
		},
		[]string{"result"}, // filled, failed
	)

	// LiveOrders tracks the live order count, refreshed by the watchdog.
	LiveOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triggers_live_orders",
			Help: "Orders currently held in the live store",
		},
	)

	// HTTPRequestDuration tracks request latency by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triggers_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)
)
