package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	InconsistencyTotal prometheus.Counter
	UsageLogDropped    prometheus.Counter
}

// New creates and registers the gateway collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docbase_operations_total",
				Help: "Logical operations executed, by operation, resource and outcome.",
			},
			[]string{"operation", "resource", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docbase_operation_duration_seconds",
				Help:    "Latency of logical operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		InconsistencyTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docbase_inconsistencies_total",
				Help: "Completed physical mutations whose catalog counterpart failed.",
			},
		),
		UsageLogDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docbase_usage_log_dropped_total",
				Help: "Usage accounting entries dropped after a store failure.",
			},
		),
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.InconsistencyTotal,
		m.UsageLogDropped,
	)
	return m
}

// Registry exposes the underlying registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation records one finished logical operation.
func (m *Metrics) ObserveOperation(operation, resource string, err error, seconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, resource, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}
