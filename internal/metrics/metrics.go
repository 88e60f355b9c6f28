// Package metrics exposes Prometheus metrics for HTTP requests and table
// operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/sqlrest/internal/apperr"
)

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal *prometheus.CounterVec

	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec

	// OperationsTotal counts table operations by operation and result code.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration is the latency of table operations.
	OperationDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlrest_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlrest_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlrest_operations_total",
				Help: "Total number of table operations",
			},
			[]string{"operation", "code"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlrest_operation_duration_seconds",
				Help:    "Table operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// ObserveOperation records one table operation. An empty code is recorded
// as "ok". The table name is not a label, to bound cardinality.
func (m *Metrics) ObserveOperation(op, _ string, code apperr.Code, elapsed time.Duration) {
	c := string(code)
	if c == "" {
		c = "ok"
	}
	m.OperationsTotal.WithLabelValues(op, c).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.RequestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
