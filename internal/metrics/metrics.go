package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used across the client. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	LiveUpdates     *prometheus.CounterVec
	LiveReconnects  prometheus.Counter
	LiveState       prometheus.Gauge
	Operations      *prometheus.CounterVec
	DirectorySize   prometheus.Gauge
}

var (
	regOnce         sync.Once
	defaultInstance *Metrics
)

// Default returns the process-wide metrics set.
func Default() *Metrics {
	regOnce.Do(func() {
		defaultInstance = New("dialer")
	})
	return defaultInstance
}

// New builds a metrics set registered on its own registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total backend API requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
		BackendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency distribution for backend API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		LiveUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_updates_total",
			Help:      "Live business updates by outcome (applied, unknown, malformed).",
		}, []string{"outcome"}),
		LiveReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_reconnects_total",
			Help:      "Reconnect attempts scheduled after the update stream dropped.",
		}),
		LiveState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_state",
			Help:      "Update stream state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Campaign and upload operations by name and result kind.",
		}, []string{"operation", "kind"}),
		DirectorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directory_businesses",
			Help:      "Number of businesses in the local directory.",
		}),
	}
	m.registry.MustRegister(
		m.BackendRequests,
		m.BackendLatency,
		m.LiveUpdates,
		m.LiveReconnects,
		m.LiveState,
		m.Operations,
		m.DirectorySize,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveRequest records one backend request outcome.
func (m *Metrics) ObserveRequest(endpoint, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(endpoint, status).Inc()
	m.BackendLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// LiveUpdate counts a pushed update by outcome.
func (m *Metrics) LiveUpdate(outcome string) {
	if m == nil {
		return
	}
	m.LiveUpdates.WithLabelValues(outcome).Inc()
}

// Reconnect counts one scheduled reconnect.
func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.LiveReconnects.Inc()
}

// SetLiveState records the numeric stream state.
func (m *Metrics) SetLiveState(value int) {
	if m == nil {
		return
	}
	m.LiveState.Set(float64(value))
}

// Operation counts an operation result.
func (m *Metrics) Operation(name, kind string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(name, kind).Inc()
}

// SetDirectorySize records the current directory length.
func (m *Metrics) SetDirectorySize(n int) {
	if m == nil {
		return
	}
	m.DirectorySize.Set(float64(n))
}
