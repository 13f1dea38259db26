package transcription

import (
	"context"
	"time"

	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/provider"
)

// TranscribeInput is the request half of a Transcribe call.
type TranscribeInput struct {
	AudioPath string
	Options   Options
}

// Endpoint is a provider's Transcribe call seen as a generic request/response
// provider, so the provider package's middleware can wrap it.
type Endpoint = provider.RequestResponse[TranscribeInput, *Result]

// Middleware decorates an Endpoint.
type Middleware = provider.Middleware[TranscribeInput, *Result]

// AsEndpoint exposes p's Transcribe as Execute.
func AsEndpoint(p Provider) Endpoint { return endpoint{p} }

type endpoint struct {
	Provider
}

func (e endpoint) Execute(ctx context.Context, in TranscribeInput) (*Result, error) {
	return e.Transcribe(ctx, in.AudioPath, in.Options)
}

// Decorate wraps p's Transcribe calls in mws. The first middleware is
// outermost. Everything else is forwarded to p unchanged.
func Decorate(p Provider, mws ...Middleware) Provider {
	return &decoratedProvider{
		decorated: decorated{inner: p},
		ep:        provider.Chain(mws...)(AsEndpoint(p)),
	}
}

// WithTracing wraps p so every Transcribe call runs in a span named
// "transcription.{name}".
func WithTracing(p Provider) Provider { return Decorate(p, Tracing()) }

// WithMetrics wraps p so every Transcribe call is recorded on m.
func WithMetrics(p Provider, m *observability.Metrics) Provider { return Decorate(p, Metrics(m)) }

// WithLogging wraps p so every Transcribe call is logged on log.
func WithLogging(p Provider, log *logger.Logger) Provider { return Decorate(p, Logging(log)) }

// Tracing opens a "transcription.{name}" span and annotates it with the
// request language and the result's model, duration and word count.
func Tracing() Middleware {
	return provider.Chain[TranscribeInput, *Result](
		provider.WithTracing[TranscribeInput, *Result]("transcription"),
		annotateSpan,
	)
}

// Metrics records each call's status, latency and audio duration on m.
func Metrics(m *observability.Metrics) Middleware {
	return provider.WithMetrics[TranscribeInput, *Result](func(ctx context.Context, name string, res *Result, err error, elapsed time.Duration) {
		if err != nil {
			m.RecordTranscription(ctx, name, "error", string(Classify(err).Code), elapsed, 0)
			return
		}
		m.RecordTranscription(ctx, name, "ok", "", elapsed, res.Duration)
	})
}

// Logging logs each call on log at debug level, and failures at warn.
func Logging(log *logger.Logger) Middleware {
	return provider.WithLogging[TranscribeInput, *Result](log)
}

// decorated forwards everything except Transcribe to the inner provider.
type decorated struct {
	inner Provider
}

func (d decorated) Name() string                         { return d.inner.Name() }
func (d decorated) IsAvailable(ctx context.Context) bool { return d.inner.IsAvailable(ctx) }
func (d decorated) Initialize() bool                     { return d.inner.Initialize() }
func (d decorated) Capabilities() Capabilities           { return d.inner.Capabilities() }

func (d decorated) EstimateCost(path string) (float64, error) {
	return d.inner.EstimateCost(path)
}

func (d decorated) FormatResponse(raw []byte, processingTimeMs int64) (*Result, error) {
	return d.inner.FormatResponse(raw, processingTimeMs)
}

// Health keeps the inner provider's detailed health visible through the wrapper.
func (d decorated) Health(ctx context.Context) provider.HealthStatus {
	return provider.CheckHealth(ctx, d.inner)
}

type decoratedProvider struct {
	decorated
	ep Endpoint
}

func (d *decoratedProvider) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	return d.ep.Execute(ctx, TranscribeInput{AudioPath: audioPath, Options: opts})
}

func annotateSpan(inner Endpoint) Endpoint {
	return &spanAnnotator{Endpoint: inner}
}

type spanAnnotator struct {
	Endpoint
}

func (s *spanAnnotator) Execute(ctx context.Context, in TranscribeInput) (*Result, error) {
	if in.Options.Language != "" {
		observability.SetSpanAttribute(ctx, observability.AttrLanguage, in.Options.Language)
	}
	res, err := s.Endpoint.Execute(ctx, in)
	if err != nil {
		observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(Classify(err).Code))
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrModel, res.Model)
	observability.SetSpanAttribute(ctx, observability.AttrAudioSeconds, res.Duration)
	observability.SetSpanAttribute(ctx, observability.AttrWordCount, res.WordCount)
	return res, nil
}
