// Package telemetry provides the observability plumbing for kibitz.
//
// It combines structured logging (zerolog), tracing (OpenTelemetry),
// Prometheus metrics and a small status event publisher. Every component is
// optional: a disabled or nil Metrics or Tracer is a no-op, so engine code can
// call into them unconditionally.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Status events
//
// The EventPublisher implements the engine status sink: ShowStatus publishes
// an error-level event that subscribers (the CLI prints them) receive in
// order. Filters narrow delivery by level, type or engine:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Fprintln(os.Stderr, e.Message)
//	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))
//
// # Metrics
//
// Engine metrics live under the configured namespace:
//
//   - engine_starts_total{engine,result}
//   - engine_handshake_duration_seconds{engine}
//   - engines_running
//   - engine_lines_total{engine}
//   - engine_queue_dropped_total{engine}
//   - engine_searches_total{engine}
//   - engine_errors_total{engine,kind}
//
// They are served by StartMetricsServer at the configured path.
package telemetry
