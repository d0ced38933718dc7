package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Backend API metrics
	backendRequestsTotal   *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec
	fallbacksTotal         *prometheus.CounterVec

	// Cache metrics
	cacheOperations *prometheus.CounterVec

	// Feature metrics
	assistantTurns      *prometheus.CounterVec
	websocketConnection prometheus.Gauge
	exportsTotal        *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector registered on its own
// registry, so several servers can coexist in one process
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger,
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		backendRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_requests_total",
				Help: "Total number of requests to the recipe backend",
			},
			[]string{"endpoint", "outcome"},
		),
		backendRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_request_duration_seconds",
				Help:    "Recipe backend request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fallback_datasets_served_total",
				Help: "Times a fallback dataset replaced a backend response",
			},
			[]string{"dataset"},
		),

		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Backend response cache operations",
			},
			[]string{"operation", "result"},
		),

		assistantTurns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_turns_total",
				Help: "Assistant chat turns by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		websocketConnection: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assistant_websocket_connections",
				Help: "Open assistant WebSocket connections",
			},
		),
		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopping_list_exports_total",
				Help: "Shopping list exports by format",
			},
			[]string{"format"},
		),
	}
}

// HTTPMiddleware records request count, latency and size per chi route
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpResponseSize.WithLabelValues(r.Method, route).Observe(float64(ww.BytesWritten()))
	})
}

// BackendRequest records one call to the recipe backend
func (m *MetricsCollector) BackendRequest(endpoint, outcome string, duration time.Duration) {
	m.backendRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.backendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// FallbackServed records that a fallback dataset was rendered
func (m *MetricsCollector) FallbackServed(dataset string) {
	m.fallbacksTotal.WithLabelValues(dataset).Inc()
}

// CacheOperation records a cache get/set/invalidate and its result
func (m *MetricsCollector) CacheOperation(operation, result string) {
	m.cacheOperations.WithLabelValues(operation, result).Inc()
}

// AssistantTurn records one assistant reply
func (m *MetricsCollector) AssistantTurn(transport, outcome string) {
	m.assistantTurns.WithLabelValues(transport, outcome).Inc()
}

// WebSocketOpened increments the open connection gauge
func (m *MetricsCollector) WebSocketOpened() {
	m.websocketConnection.Inc()
}

// WebSocketClosed decrements the open connection gauge
func (m *MetricsCollector) WebSocketClosed() {
	m.websocketConnection.Dec()
}

// Export records a shopping list export
func (m *MetricsCollector) Export(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
