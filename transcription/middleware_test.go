package transcription_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/provider"
	"github.com/kbukum/sttkit/transcription"
	"github.com/kbukum/sttkit/transcription/testutil"
)

func TestWithTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())
	otel.SetTracerProvider(tp)

	ok := transcription.WithTracing(testutil.NewProvider("openai"))
	if _, err := ok.Transcribe(context.Background(), "a.mp3", transcription.Options{Language: "en"}); err != nil {
		t.Fatal(err)
	}
	failing := transcription.WithTracing(testutil.NewProvider("whisper", testutil.WithError(errors.RateLimited())))
	if _, err := failing.Transcribe(context.Background(), "a.mp3", transcription.Options{}); !errors.HasCode(err, errors.ErrCodeRateLimited) {
		t.Fatalf("expected the inner error unchanged, got %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "transcription.openai" || spans[1].Name() != "transcription.whisper" {
		t.Errorf("unexpected span names %q, %q", spans[0].Name(), spans[1].Name())
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[observability.AttrProvider].AsString() != "openai" || attrs[observability.AttrModel].AsString() != "fake" {
		t.Errorf("unexpected span attributes %v", attrs)
	}
	if attrs[observability.AttrWordCount].AsInt64() != 3 {
		t.Errorf("expected word count 3, got %v", attrs[observability.AttrWordCount])
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("expected error status on failed span, got %v", spans[1].Status())
	}
}

func TestWithMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	m, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	p := transcription.WithMetrics(testutil.NewProvider("openai", testutil.WithSteps(
		testutil.Step{},
		testutil.Step{Err: errors.Transport("upload", nil)},
	)), m)
	_, _ = p.Transcribe(context.Background(), "a.mp3", transcription.Options{})
	_, _ = p.Transcribe(context.Background(), "a.mp3", transcription.Options{})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "stt.transcriptions" {
				continue
			}
			for _, dp := range metric.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("expected 2 recorded transcriptions, got %d", total)
	}
}

func TestDecorators_Forward(t *testing.T) {
	inner := testutil.NewProvider("elevenlabs", testutil.Unavailable())
	p := transcription.WithMetrics(transcription.WithTracing(inner), nil)

	if p.Name() != "elevenlabs" || p.Initialize() || p.Capabilities().Name != "elevenlabs" {
		t.Error("decorators must forward identity and availability")
	}
	if got := provider.CheckHealth(context.Background(), p); got.Status != provider.StatusUnavailable {
		t.Errorf("expected unavailable health through wrappers, got %v", got.Status)
	}

	reg, err := transcription.NewRegistry(nil, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.ListAvailable(context.Background())) != 0 {
		t.Error("wrapped unavailable provider must not be listed")
	}
}

func TestDecorate_ChainsProviderMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "test")

	var order []string
	mark := func(tag string) transcription.Middleware {
		return func(inner transcription.Endpoint) transcription.Endpoint {
			return markingEndpoint{Endpoint: inner, tag: tag, order: &order}
		}
	}
	inner := testutil.NewProvider("openai")
	p := transcription.Decorate(inner, mark("outer"), transcription.Logging(log), mark("inner"))

	res, err := p.Transcribe(context.Background(), "a.mp3", transcription.Options{})
	if err != nil || res.Provider != "openai" {
		t.Fatalf("unexpected result %v, %v", res, err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("expected the first middleware outermost, got %v", order)
	}
	if !strings.Contains(buf.String(), `"provider execute ok"`) {
		t.Errorf("expected the logging middleware to run, got %s", buf.String())
	}
	if paths := inner.Paths(); len(paths) != 1 || paths[0] != "a.mp3" {
		t.Errorf("expected the audio path to reach the provider, got %v", paths)
	}
}

type markingEndpoint struct {
	transcription.Endpoint
	tag   string
	order *[]string
}

func (m markingEndpoint) Execute(ctx context.Context, in transcription.TranscribeInput) (*transcription.Result, error) {
	*m.order = append(*m.order, m.tag)
	return m.Endpoint.Execute(ctx, in)
}
