package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: true},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
		}, wantErr: true},
		{name: "sampling out of range", mutate: func(c *Config) { c.Tracing.SamplingRate = 1.5 }, wantErr: true},
		{name: "metrics without address", mutate: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}, wantErr: true},
		{name: "async without buffer", mutate: func(c *Config) {
			c.Events.EnableAsync = true
			c.Events.BufferSize = 0
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.NewComponentLogger("engine").WithEngine("stockfish").Info("started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "stockfish", entry["engine"])
	assert.Equal(t, "started", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerContext(t *testing.T) {
	logger := Nop().WithEngine("komodo")
	ctx := logger.WithContext(context.Background())
	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestEventPublisherShowStatus(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true})
	require.NoError(t, err)

	var got []Event
	ep.Subscribe(func(e Event) { got = append(got, e) }, nil)

	ep.ShowStatus("unable to start engine")

	require.Len(t, got, 1)
	assert.Equal(t, EventTypeStatus, got[0].Type)
	assert.Equal(t, EventLevelError, got[0].Level)
	assert.Equal(t, "unable to start engine", got[0].Message)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestEventPublisherFilters(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true})
	require.NoError(t, err)

	var warnings, stockfish []Event
	ep.Subscribe(func(e Event) { warnings = append(warnings, e) }, FilterByLevel(EventLevelWarning))
	ep.Subscribe(func(e Event) { stockfish = append(stockfish, e) }, FilterByEngine("stockfish"))

	require.NoError(t, ep.PublishEngineStarted("stockfish", "Stockfish 16"))
	require.NoError(t, ep.PublishEngineStopped("lc0"))
	ep.ShowStatus("boom")

	assert.Len(t, warnings, 1)
	require.Len(t, stockfish, 1)
	assert.Equal(t, EventTypeEngineStarted, stockfish[0].Type)

	ep.AddFilter(FilterByType(EventTypeStatus))
	require.NoError(t, ep.PublishEngineStarted("stockfish", "Stockfish 16"))
	assert.Len(t, stockfish, 1, "global filter drops non-status events")
}

func TestEventPublisherAsync(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true, EnableAsync: true, BufferSize: 8})
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	ep.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Message)
		mu.Unlock()
	}, nil)

	for _, msg := range []string{"a", "b", "c"} {
		ep.ShowStatus(msg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ep.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestEventPublisherDisabled(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: false})
	require.NoError(t, err)

	called := false
	ep.Subscribe(func(Event) { called = true }, nil)
	ep.ShowStatus("ignored")
	assert.False(t, called)
	assert.NoError(t, ep.Shutdown(context.Background()))
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.RecordStart("x", "ok")
	nilMetrics.RecordQueueDrop("x")
	assert.Nil(t, nilMetrics.Registry())

	m, err := NewMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)
	m.RecordLine("x")
	m.RecordHandshake("x", time.Millisecond)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.StartMetricsServer())
}

func TestMetricsCounters(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test", ListenAddress: ":0"})
	require.NoError(t, err)

	m.RecordStart("sf", "ok")
	m.RecordStart("sf", "spawn")
	m.RecordLine("sf")
	m.RecordLine("sf")
	m.RecordQueueDrop("sf")
	m.RecordSearch("sf")
	m.RecordError("sf", "io")
	m.RecordHandshake("sf", 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineStarts.WithLabelValues("sf", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineStarts.WithLabelValues("sf", "spawn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enginesRunning))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.linesRead.WithLabelValues("sf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueDropped.WithLabelValues("sf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues("sf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsByKind.WithLabelValues("sf", "io")))

	m.RecordStopped()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.enginesRunning))
	assert.NotNil(t, m.Registry())
}

func TestTracerDisabled(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: false}, "kibitz", "test")
	require.NoError(t, err)

	ctx, span := tr.StartEngineSpan(context.Background(), "sf", "start")
	RecordError(span, errors.New("failed"))
	span.End()

	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tr.Shutdown(context.Background()))

	var nilTracer *Tracer
	_, span = nilTracer.StartSpan(context.Background(), "engine.search")
	span.End()
}

func TestTracerNoneExporterSamples(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "kibitz", "test")
	require.NoError(t, err)
	defer tr.Shutdown(context.Background())

	ctx, span := tr.StartEngineSpan(context.Background(), "sf", "search")
	defer span.End()
	assert.NotEmpty(t, TraceID(ctx))
}

func TestStartOperationWithoutTelemetry(t *testing.T) {
	op := StartOperation(context.Background(), "detect")
	require.NotNil(t, op.Logger)
	op.End(nil)
}

func TestNewTelemetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Output = "stderr"
	tel, err := NewTelemetry(cfg)
	require.NoError(t, err)

	ctx := tel.WithContext(context.Background())
	assert.Same(t, tel, FromTelemetryContext(ctx))

	op := StartOperation(ctx, "analyse", AttrEngineName.String("sf"))
	op.End(errors.New("stopped"))

	assert.NoError(t, tel.Shutdown(context.Background()))
}
