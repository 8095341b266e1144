package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for engine processes.
// A nil or disabled Metrics is a no-op.
type Metrics struct {
	config MetricsConfig

	// Lifecycle metrics
	engineStarts      *prometheus.CounterVec
	handshakeDuration *prometheus.HistogramVec
	enginesRunning    prometheus.Gauge

	// I/O metrics
	linesRead    *prometheus.CounterVec
	queueDropped *prometheus.CounterVec

	// Search metrics
	searches *prometheus.CounterVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
	server   *http.Server
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.HandshakeBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		engineStarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_starts_total",
				Help:      "Total number of engine start attempts",
			},
			[]string{"engine", "result"},
		),
		handshakeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "engine_handshake_duration_seconds",
				Help:      "Duration of the discovery handshake in seconds",
				Buckets:   buckets,
			},
			[]string{"engine"},
		),
		enginesRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "engines_running",
				Help:      "Current number of running engine processes",
			},
		),
		linesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_lines_total",
				Help:      "Total number of lines read from engines",
			},
			[]string{"engine"},
		),
		queueDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_queue_dropped_total",
				Help:      "Lines discarded because the engine output queue was full",
			},
			[]string{"engine"},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_searches_total",
				Help:      "Total number of searches started",
			},
			[]string{"engine"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_errors_total",
				Help:      "Total number of engine errors by kind",
			},
			[]string{"engine", "kind"},
		),
	}

	registry.MustRegister(
		m.engineStarts,
		m.handshakeDuration,
		m.enginesRunning,
		m.linesRead,
		m.queueDropped,
		m.searches,
		m.errorsByKind,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordStart records a start attempt; result is "ok" or an error kind.
func (m *Metrics) RecordStart(engine, result string) {
	if !m.enabled() {
		return
	}
	m.engineStarts.WithLabelValues(engine, result).Inc()
	if result == "ok" {
		m.enginesRunning.Inc()
	}
}

// RecordStopped records that a running engine has stopped.
func (m *Metrics) RecordStopped() {
	if !m.enabled() {
		return
	}
	m.enginesRunning.Dec()
}

// RecordHandshake records the duration of a discovery handshake.
func (m *Metrics) RecordHandshake(engine string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.handshakeDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordLine counts one line read from an engine.
func (m *Metrics) RecordLine(engine string) {
	if !m.enabled() {
		return
	}
	m.linesRead.WithLabelValues(engine).Inc()
}

// RecordQueueDrop counts a line discarded from a full output queue.
func (m *Metrics) RecordQueueDrop(engine string) {
	if !m.enabled() {
		return
	}
	m.queueDropped.WithLabelValues(engine).Inc()
}

// RecordSearch counts a search started on an engine.
func (m *Metrics) RecordSearch(engine string) {
	if !m.enabled() {
		return
	}
	m.searches.WithLabelValues(engine).Inc()
}

// RecordError records an engine error by kind.
func (m *Metrics) RecordError(engine, kind string) {
	if !m.enabled() {
		return
	}
	m.errorsByKind.WithLabelValues(engine, kind).Inc()
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.enabled() {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	m.server = &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", m.config.ListenAddress).Msg("metrics server stopped")
		}
	}()

	return nil
}

// Shutdown stops the metrics server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
