// Package metrics instruments the engine with Prometheus collectors.
// Grounded on the teacher's prometheus/client_golang dependency and the
// counters/histograms shape of pkg/matching EngineMetrics/EngineStatus.
// This package never starts an HTTP server: exposing /metrics is the
// adapter's job (spec.md §1), out of scope for the core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine holds the Prometheus collectors for a single matching engine
// instance and the Registry they are bound to.
type Engine struct {
	Registry *prometheus.Registry

	SubmitLatency   prometheus.Histogram
	OrdersSubmitted prometheus.Counter
	OrdersRejected  *prometheus.CounterVec
	TradesExecuted  prometheus.Counter
	OrdersResting   prometheus.Gauge
}

// NewEngine builds and registers a fresh set of collectors on a new
// Registry. Each engine instance owns its own registry so that
// multiple engines (e.g. in tests) never collide on metric names.
func NewEngine() *Engine {
	reg := prometheus.NewRegistry()

	m := &Engine{
		Registry: reg,
		SubmitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchcore",
			Subsystem: "engine",
			Name:      "submit_latency_seconds",
			Help:      "Latency of submit_order calls.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchcore",
			Subsystem: "engine",
			Name:      "orders_submitted_total",
			Help:      "Total number of orders submitted.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcore",
			Subsystem: "engine",
			Name:      "orders_rejected_total",
			Help:      "Total number of orders rejected, by reason code.",
		}, []string{"code"}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchcore",
			Subsystem: "engine",
			Name:      "trades_executed_total",
			Help:      "Total number of trades executed.",
		}),
		OrdersResting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matchcore",
			Subsystem: "engine",
			Name:      "orders_resting",
			Help:      "Current number of resting orders across all books.",
		}),
	}

	reg.MustRegister(
		m.SubmitLatency,
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.TradesExecuted,
		m.OrdersResting,
	)

	return m
}

// ObserveSubmit records the wall-clock duration of one submit_order call.
func (m *Engine) ObserveSubmit(d time.Duration) {
	m.SubmitLatency.Observe(d.Seconds())
}
