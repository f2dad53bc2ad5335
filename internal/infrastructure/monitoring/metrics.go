package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Sandbox metrics
	HandlesMounted    prometheus.Counter
	HandlesReleased   prometheus.Counter
	HandlesLive       prometheus.Gauge
	Executions        *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram

	// Console relay metrics
	ConsoleEntries *prometheus.CounterVec
	ConsoleDropped *prometheus.CounterVec

	// Persistence metrics
	Saves *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		HandlesMounted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_sandbox_handles_mounted_total",
				Help: "Sandbox handles created by mounts",
			},
		),
		HandlesReleased: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_sandbox_handles_released_total",
				Help: "Sandbox handles released",
			},
		),
		HandlesLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_sandbox_handles_live",
				Help: "Sandbox handles currently live",
			},
		),
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_sandbox_executions_total",
				Help: "Headless document executions by result",
			},
			[]string{"result"},
		),
		ExecutionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_sandbox_execution_duration_seconds",
				Help:    "Headless document execution time",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		ConsoleEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_console_entries_total",
				Help: "Console entries appended by kind",
			},
			[]string{"kind"},
		),
		ConsoleDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_console_dropped_total",
				Help: "Relayed messages dropped by reason",
			},
			[]string{"reason"},
		),

		Saves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_saves_total",
				Help: "Project persistence attempts by result",
			},
			[]string{"result"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_ws_connections",
				Help: "Open WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_ws_messages_total",
				Help: "WebSocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),
	}
}

// Registry exposes the underlying registry (used by tests to gather values).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// HandleMounted records a new live sandbox handle
func (m *Metrics) HandleMounted() {
	if m == nil {
		return
	}
	m.HandlesMounted.Inc()
	m.HandlesLive.Inc()
}

// HandleReleased records a sandbox handle release
func (m *Metrics) HandleReleased() {
	if m == nil {
		return
	}
	m.HandlesReleased.Inc()
	m.HandlesLive.Dec()
}

// RecordExecution records a finished headless execution
func (m *Metrics) RecordExecution(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(result).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())
}

// RecordConsoleEntry records an appended console entry
func (m *Metrics) RecordConsoleEntry(kind string) {
	if m == nil {
		return
	}
	m.ConsoleEntries.WithLabelValues(kind).Inc()
}

// RecordConsoleDropped records a relayed message that was not appended
func (m *Metrics) RecordConsoleDropped(reason string) {
	if m == nil {
		return
	}
	m.ConsoleDropped.WithLabelValues(reason).Inc()
}

// RecordSave records a persistence attempt
func (m *Metrics) RecordSave(result string) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(result).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
