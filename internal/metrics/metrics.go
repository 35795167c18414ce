// Package metrics exposes Prometheus collectors for client operations and the
// HTTP engine.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
)

const namespace = "s3bridge"

// OutcomeSuccess labels operations that returned a result.
const OutcomeSuccess = "success"

// Metrics holds all client metrics.
type Metrics struct {
	// Operation metrics
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	OperationsInFlight prometheus.Gauge

	// Engine metrics
	RetriesTotal       *prometheus.CounterVec
	BytesReceivedTotal prometheus.Counter
	BreakerState       prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered but fully usable.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of storage operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		OperationsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operations_in_flight",
				Help:      "Current number of storage operations awaiting completion",
			},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "retries_total",
				Help:      "Total number of HTTP attempts retried",
			},
			[]string{"reason"},
		),
		BytesReceivedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "bytes_received_total",
				Help:      "Total response body bytes delivered to operations",
			},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),
	}
}

// Start marks an operation as in flight. The returned function records its
// outcome and duration and must be called once.
func (m *Metrics) Start(operation string) func(err error) {
	start := time.Now()
	m.OperationsInFlight.Inc()
	return func(err error) {
		m.OperationsInFlight.Dec()
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	}
}

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return strings.ToLower(string(errors.CategoryOf(err)))
}
