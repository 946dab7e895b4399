// Package metrics wraps the prometheus registry the /metrics endpoint
// serves, replacing the teacher's hand-rolled latency-percentile struct
// with real counters and a histogram.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	OrdersReceived  prometheus.Counter
	OrdersMatched   prometheus.Counter
	OrdersCancelled prometheus.Counter
	OrdersRejected  prometheus.Counter
	TradesExecuted  prometheus.Counter
	OrdersInBook    prometheus.Gauge
	SubmitLatency   prometheus.Histogram
}

// New builds a Metrics bound to its own private prometheus.Registry,
// rather than registering into prometheus.DefaultRegisterer - every
// engine instance (including the many spun up per test) gets a clean
// registry instead of colliding on shared global collector names.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		OrdersReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_received_total",
			Help: "Total number of orders accepted for validation.",
		}),
		OrdersMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_matched_total",
			Help: "Total number of orders that produced at least one trade.",
		}),
		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total number of successful cancellations.",
		}),
		OrdersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Total number of orders rejected by validation or FOK unfillability.",
		}),
		TradesExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "trades_executed_total",
			Help: "Total number of trades produced by the matching engine.",
		}),
		OrdersInBook: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orders_in_book",
			Help: "Current number of resting orders across all books.",
		}),
		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_processing_seconds",
			Help:    "Time spent processing a single submit call.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}

// ObserveSubmit records how long a submit call took.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitLatency.Observe(time.Since(start).Seconds())
}
