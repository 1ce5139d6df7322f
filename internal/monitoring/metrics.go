package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webterm"

// Protocol labels.
const (
	ProtocolStream = "stream"
	ProtocolRPC    = "rpc"
)

// Direction labels.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	Connections *prometheus.GaugeVec
	Messages    *prometheus.CounterVec

	// Session metrics
	StartDuration  prometheus.Histogram
	TokensIssued   prometheus.Counter
	TokenRejection *prometheus.CounterVec

	startTime time.Time

	mu       sync.Mutex
	snapshot Snapshot
}

// Snapshot holds current values for the health endpoint.
type Snapshot struct {
	TotalRequests int64 `json:"total_requests"`
	TotalErrors   int64 `json:"total_errors"`
	Connections   int64 `json:"connections"`
	Uptime        int64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector with a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		Connections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of open WebSocket connections",
			},
			[]string{"protocol"},
		),
		Messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "protocol", "kind"},
		),

		StartDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "start_duration_seconds",
				Help:      "Time to spawn a shell and answer the start call",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		TokensIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_issued_total",
				Help:      "Total number of session tokens issued",
			},
		),
		TokenRejection: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_rejections_total",
				Help:      "Total number of refused session tokens",
			},
			[]string{"reason"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// TrackSessions exports the live PTY session count reported by active.
func (m *Metrics) TrackSessions(active func() int) {
	promauto.With(m.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pty_sessions",
			Help:      "Number of running shell sessions",
		},
		func() float64 { return float64(active()) },
	)
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// ConnectionOpened counts an upgraded WebSocket connection.
func (m *Metrics) ConnectionOpened(protocol string) {
	m.Connections.WithLabelValues(protocol).Inc()
	m.mu.Lock()
	m.snapshot.Connections++
	m.mu.Unlock()
}

// ConnectionClosed releases a connection counted by ConnectionOpened.
func (m *Metrics) ConnectionClosed(protocol string) {
	m.Connections.WithLabelValues(protocol).Dec()
	m.mu.Lock()
	m.snapshot.Connections--
	m.mu.Unlock()
}

// RecordMessage counts one WebSocket message.
func (m *Metrics) RecordMessage(direction, protocol, kind string) {
	m.Messages.WithLabelValues(direction, protocol, kind).Inc()
}

// ObserveStart records the latency of a start call.
func (m *Metrics) ObserveStart(d time.Duration) {
	m.StartDuration.Observe(d.Seconds())
}

// TokenIssued counts an issued token.
func (m *Metrics) TokenIssued() {
	m.TokensIssued.Inc()
}

// TokenRejected counts a refused token.
func (m *Metrics) TokenRejected(reason string) {
	m.TokenRejection.WithLabelValues(reason).Inc()
}

// Snapshot returns the current values for the health endpoint.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snapshot
	s.Uptime = int64(time.Since(m.startTime).Seconds())
	return s
}
