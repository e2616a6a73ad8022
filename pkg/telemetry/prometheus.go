package telemetry

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics exposed by the workflow watcher.
type Metrics struct {
	// Workflow metrics
	workflowReloads    *prometheus.CounterVec
	workflowNodes      *prometheus.GaugeVec
	workflowEdges      prometheus.Gauge
	validationProblems *prometheus.GaugeVec
	publishDecisions   *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		workflowReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_workflow_reloads_total",
				Help: "Total number of workflow reload attempts by status",
			},
			[]string{"status"},
		),

		workflowNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flow_workflow_nodes",
				Help: "Nodes in the loaded workflow by kind",
			},
			[]string{"kind"},
		),

		workflowEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flow_workflow_edges",
				Help: "Edges in the loaded workflow",
			},
		),

		validationProblems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flow_validation_problems",
				Help: "Validation problems reported for the loaded workflow by node",
			},
			[]string{"node_id"},
		),

		publishDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_publish_decisions_total",
				Help: "Publish gate decisions by result",
			},
			[]string{"result"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.workflowReloads,
		m.workflowNodes,
		m.workflowEdges,
		m.validationProblems,
		m.publishDecisions,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordWorkflowReload records a workflow reload attempt.
func (m *Metrics) RecordWorkflowReload(status string) {
	m.workflowReloads.WithLabelValues(status).Inc()
}

// UpdateWorkflowShape replaces the node and edge gauges.
func (m *Metrics) UpdateWorkflowShape(nodesByKind map[string]int, edges int) {
	m.workflowNodes.Reset()
	for kind, count := range nodesByKind {
		m.workflowNodes.WithLabelValues(kind).Set(float64(count))
	}
	m.workflowEdges.Set(float64(edges))
}

// UpdateValidation replaces the per-node problem gauge. Nodes without
// problems are not reported.
func (m *Metrics) UpdateValidation(problems map[string][]string) {
	m.validationProblems.Reset()
	for nodeID, list := range problems {
		if len(list) == 0 {
			continue
		}
		m.validationProblems.WithLabelValues(nodeID).Set(float64(len(list)))
	}
}

// RecordPublishDecision counts one publish gate result.
func (m *Metrics) RecordPublishDecision(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.publishDecisions.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware creates HTTP middleware that records request metrics
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, endpointName(r.URL.Path), strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support http.Hijacker")
}

// endpointName keeps the label set bounded.
func endpointName(path string) string {
	switch path {
	case "/healthz":
		return "health"
	case "/metrics":
		return "metrics"
	case "/ports":
		return "ports"
	case "/variables":
		return "variables"
	case "/validate":
		return "validate"
	default:
		return "unknown"
	}
}
