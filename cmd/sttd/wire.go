package main

import (
	"io"

	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/notify"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/resilience"
	"github.com/kbukum/sttkit/transcription"
	"github.com/kbukum/sttkit/transcription/cloudflare"
	"github.com/kbukum/sttkit/transcription/elevenlabs"
	"github.com/kbukum/sttkit/transcription/openai"
	"github.com/kbukum/sttkit/transcription/whisper"
)

// service is the wired transcription stack.
type service struct {
	registry   *transcription.Registry
	router     *transcription.Router
	dispatcher *notify.Dispatcher
}

// buildService constructs providers, registry, notifier and router from cfg.
// Console notifications go to consoleOut.
func buildService(cfg *Config, metrics *observability.Metrics, log *logger.Logger, consoleOut io.Writer) (*service, error) {
	providers, err := buildProviders(cfg.Providers, metrics, log.WithComponent("provider"))
	if err != nil {
		return nil, err
	}

	var priority []string
	if len(cfg.Router.Priority) > 0 {
		priority = cfg.Router.Priority
	}
	registry, err := transcription.NewRegistry(priority, providers...)
	if err != nil {
		return nil, err
	}

	dispatcher, err := buildDispatcher(cfg.Notify, metrics, consoleOut)
	if err != nil {
		return nil, err
	}

	opts := []transcription.RouterOption{
		transcription.WithRouterLogger(log.WithComponent("router")),
		transcription.WithRouterMetrics(metrics),
		transcription.WithMaxConcurrent(cfg.Router.MaxConcurrent),
	}
	if dispatcher != nil {
		opts = append(opts, transcription.WithNotifier(dispatcher, cfg.Router.NotifyChannel))
	}
	if cfg.Router.Breaker.Enabled {
		opts = append(opts, transcription.WithBreakers(resilience.CircuitBreakerConfig{
			MaxFailures:      cfg.Router.Breaker.MaxFailures,
			Timeout:          cfg.Router.Breaker.Timeout,
			HalfOpenMaxCalls: 1,
		}))
	}

	return &service{
		registry:   registry,
		router:     transcription.NewRouter(registry, opts...),
		dispatcher: dispatcher,
	}, nil
}

// buildProviders constructs every vendor adapter inside the standard decorators.
// Providers without credentials are still registered and report unavailable.
func buildProviders(cfg ProvidersConfig, metrics *observability.Metrics, log *logger.Logger) ([]transcription.Provider, error) {
	oa, err := openai.NewProvider(cfg.OpenAI)
	if err != nil {
		return nil, err
	}
	el, err := elevenlabs.NewProvider(cfg.ElevenLabs)
	if err != nil {
		return nil, err
	}
	cf, err := cloudflare.NewProvider(cfg.Cloudflare)
	if err != nil {
		return nil, err
	}
	wh, err := whisper.NewProvider(cfg.Whisper)
	if err != nil {
		return nil, err
	}

	raw := []transcription.Provider{el, oa, cf, wh}
	out := make([]transcription.Provider, 0, len(raw))
	for _, p := range raw {
		out = append(out, transcription.Decorate(p,
			transcription.Tracing(),
			transcription.Metrics(metrics),
			transcription.Logging(log),
		))
	}
	return out, nil
}

// buildDispatcher returns nil when no channel is configured.
func buildDispatcher(cfg NotifyConfig, metrics *observability.Metrics, consoleOut io.Writer) (*notify.Dispatcher, error) {
	var channels []notify.Channel
	if cfg.Console {
		channels = append(channels, notify.NewConsoleChannel("console", consoleOut))
	}
	for _, wc := range cfg.Webhooks {
		ch, err := notify.NewWebhookChannel(wc)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, nil
	}
	return notify.NewDispatcher(channels...).WithMetrics(metrics), nil
}
