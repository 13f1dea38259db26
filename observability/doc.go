// Package observability wires OpenTelemetry tracing and metrics for sttkit.
//
// Telemetry is off unless Config.Enabled is set; the global no-op providers
// are used then, so instrumented code needs no nil checks.
//
//	shutdown, err := observability.Init(ctx, cfg.Telemetry)
//	defer shutdown(context.Background())
//
//	ctx, span := observability.StartSpan(ctx, "transcription.openai")
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("sttkit"))
//	metrics.RecordTranscription(ctx, "openai", "ok", "", elapsed, 12.5)
package observability
