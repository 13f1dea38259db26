package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.ServiceName != "sttd" || cfg.Endpoint != "localhost:4318" || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	cfg.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample rate > 1 to fail")
	}
}

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown failed: %v", err)
	}
}

func TestInitTracerAndMeter(t *testing.T) {
	cfg := Config{Enabled: true, Insecure: true, SampleRate: 0.5}
	cfg.ApplyDefaults()

	tp, err := InitTracer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	mp, err := InitMeter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tp.Shutdown(ctx)
	_ = mp.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	if got := sampler(0).Description(); got != sdktrace.NeverSample().Description() {
		t.Errorf("expected never sampler, got %s", got)
	}
	if got := sampler(1).Description(); got == sdktrace.NeverSample().Description() {
		t.Errorf("expected sampling for rate 1, got %s", got)
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "transcription.openai")
	SetSpanAttribute(ctx, AttrProvider, "openai")
	SetSpanAttribute(ctx, AttrFileSize, int64(1024))
	SetSpanAttribute(ctx, AttrAudioSeconds, 1.5)
	SetSpanAttribute(ctx, AttrAttempt, 2)
	SetSpanError(ctx, errors.New("boom"))
	SetSpanError(ctx, nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrProvider].AsString() != "openai" {
		t.Errorf("expected provider attribute, got %v", attrs[AttrProvider])
	}
	if attrs[AttrFileSize].AsInt64() != 1024 {
		t.Errorf("expected file size attribute, got %v", attrs[AttrFileSize])
	}
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status())
	}
	if len(s.Events()) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(s.Events()))
	}
}

func TestSpanHelpers_NoSpan(t *testing.T) {
	SetSpanAttribute(context.Background(), AttrProvider, "x")
	SetSpanError(context.Background(), errors.New("x"))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordTranscription(ctx, "openai", "ok", "", 200*time.Millisecond, 12)
	m.RecordTranscription(ctx, "openai", "error", "RATE_LIMITED", 10*time.Millisecond, 0)
	m.RecordFallback(ctx, "openai", "whisper", "RATE_LIMITED")
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "POST", "/v1/transcriptions", 200, time.Second)
	m.RecordNotification(ctx, "console", nil)

	data := collect(t, reader)
	sum, ok := data["stt.transcriptions"].(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected stt.transcriptions sum, got %T", data["stt.transcriptions"])
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("expected 2 transcriptions, got %d", total)
	}
	audio, ok := data["stt.audio.duration"].(metricdata.Histogram[float64])
	if !ok || len(audio.DataPoints) != 1 || audio.DataPoints[0].Count != 1 {
		t.Errorf("expected one audio duration sample, got %+v", data["stt.audio.duration"])
	}
	for _, name := range []string{"stt.router.fallbacks", "http.server.requests", "http.server.active", "notify.deliveries"} {
		if _, ok := data[name]; !ok {
			t.Errorf("expected instrument %s to be collected", name)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordTranscription(ctx, "p", "ok", "", time.Second, 1)
	m.RecordFallback(ctx, "a", "b", "c")
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "GET", "/", 200, time.Second)
	m.RecordNotification(ctx, "c", nil)
}

func TestServiceHealth_AddComponent(t *testing.T) {
	sh := NewServiceHealth("sttd", "dev")
	sh.AddComponent(Health{Name: "openai", Status: HealthStatusUp})
	if sh.Status != HealthStatusUp {
		t.Errorf("expected up, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "whisper", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "router", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "cloudflare", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("degraded must not override down, got %s", sh.Status)
	}
	if len(sh.Components) != 4 {
		t.Errorf("expected 4 components, got %d", len(sh.Components))
	}
}
