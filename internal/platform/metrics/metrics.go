// Package metrics holds the Prometheus collectors for the dossier service on
// a dedicated registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	dossierRequests      *prometheus.CounterVec
	fanoutDuration       prometheus.Histogram
	accessDecisions      *prometheus.CounterVec
	auditEntries         *prometheus.CounterVec
	auditPublishFailures prometheus.Counter
	measurementMutations *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		dossierRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_requests_total",
				Help: "Dossier aggregations by outcome",
			},
			[]string{"outcome"},
		),
		fanoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dossier_fanout_duration_seconds",
				Help:    "Wall time of the concurrent dossier reads",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		accessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_access_decisions_total",
				Help: "Authorization gate decisions by operation",
			},
			[]string{"operation", "decision"},
		),
		auditEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_entries_total",
				Help: "Audit entries appended by action",
			},
			[]string{"action"},
		),
		auditPublishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_stream_publish_failures_total",
				Help: "Audit entries that could not be mirrored to the stream",
			},
		),
		measurementMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "measurement_mutations_total",
				Help: "Measurement mutations by operation and reference scheme",
			},
			[]string{"operation", "scheme"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.dossierRequests,
		m.fanoutDuration,
		m.accessDecisions,
		m.auditEntries,
		m.auditPublishFailures,
		m.measurementMutations,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			m.httpRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) ObserveDossier(outcome string, fanout time.Duration) {
	if m == nil {
		return
	}
	m.dossierRequests.WithLabelValues(outcome).Inc()
	if fanout > 0 {
		m.fanoutDuration.Observe(fanout.Seconds())
	}
}

func (m *Metrics) AccessDecision(operation string, allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.accessDecisions.WithLabelValues(operation, decision).Inc()
}

func (m *Metrics) AuditEntry(action string) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(action).Inc()
}

func (m *Metrics) AuditPublishFailed() {
	if m == nil {
		return
	}
	m.auditPublishFailures.Inc()
}

func (m *Metrics) MeasurementMutation(operation, scheme string) {
	if m == nil {
		return
	}
	m.measurementMutations.WithLabelValues(operation, scheme).Inc()
}
