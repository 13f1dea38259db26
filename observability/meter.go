package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/sttkit/logger"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global provider.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		logger.FieldService, cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments sttkit records. A nil *Metrics records nothing.
type Metrics struct {
	transcriptions       metric.Int64Counter
	transcriptionSeconds metric.Float64Histogram
	audioSeconds         metric.Float64Histogram
	fallbacks            metric.Int64Counter
	requestTotal         metric.Int64Counter
	requestDuration      metric.Float64Histogram
	requestActive        metric.Int64UpDownCounter
	notifications        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.transcriptions, err = meter.Int64Counter("stt.transcriptions",
		metric.WithDescription("Transcription attempts by provider, status and error code"),
	); err != nil {
		return nil, fmt.Errorf("creating stt.transcriptions counter: %w", err)
	}
	if m.transcriptionSeconds, err = meter.Float64Histogram("stt.transcription.duration",
		metric.WithDescription("Wall-clock duration of provider calls"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating stt.transcription.duration histogram: %w", err)
	}
	if m.audioSeconds, err = meter.Float64Histogram("stt.audio.duration",
		metric.WithDescription("Duration of successfully transcribed audio"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating stt.audio.duration histogram: %w", err)
	}
	if m.fallbacks, err = meter.Int64Counter("stt.router.fallbacks",
		metric.WithDescription("Fallbacks from one provider to the next"),
	); err != nil {
		return nil, fmt.Errorf("creating stt.router.fallbacks counter: %w", err)
	}
	if m.requestTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.server.active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("creating http.server.active counter: %w", err)
	}
	if m.notifications, err = meter.Int64Counter("notify.deliveries",
		metric.WithDescription("Notification deliveries by channel and status"),
	); err != nil {
		return nil, fmt.Errorf("creating notify.deliveries counter: %w", err)
	}
	return m, nil
}

// RecordTranscription records one provider call. audioSeconds is only
// recorded for successful calls.
func (m *Metrics) RecordTranscription(ctx context.Context, provider, status, code string, elapsed time.Duration, audioSeconds float64) {
	if m == nil {
		return
	}
	m.transcriptions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
		attribute.String("code", code),
	))
	m.transcriptionSeconds.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	if status == "ok" && audioSeconds > 0 {
		m.audioSeconds.Record(ctx, audioSeconds, metric.WithAttributes(attribute.String("provider", provider)))
	}
}

// RecordFallback records a fallback from one provider to another.
func (m *Metrics) RecordFallback(ctx context.Context, from, to, code string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("code", code),
	))
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordNotification records a delivery attempt on a notification channel.
func (m *Metrics) RecordNotification(ctx context.Context, channel string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("status", status),
	))
}
