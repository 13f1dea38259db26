package transcription

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/notify"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/provider"
	"github.com/kbukum/sttkit/resilience"
)

// ProviderAuto selects the provider by priority with one fallback.
const ProviderAuto = "auto"

const (
	modeAuto     = "auto"
	modeExplicit = "explicit"
)

// Request is a routed transcription request.
type Request struct {
	// Provider names the provider to use. Empty or ProviderAuto selects by priority.
	Provider string `json:"provider,omitempty"`
	Options
}

// Attempt records one provider call made by the router.
type Attempt struct {
	Provider  string           `json:"provider"`
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	ElapsedMs int64            `json:"elapsed_ms"`
	Err       error            `json:"-"`
}

// FallbackError is returned in auto mode when the selected provider and its
// fallback both failed.
type FallbackError struct {
	Attempts []Attempt
}

// Error lists every provider tried and how it failed.
func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", a.Provider, a.Code, a.Message))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the attempt errors to errors.Is and errors.As.
func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// AppError converts the aggregate into a FALLBACK_EXHAUSTED error.
func (e *FallbackError) AppError() *errors.AppError {
	return errors.New(errors.ErrCodeFallbackExhausted, e.Error(), http.StatusBadGateway).
		WithDetail("attempts", e.Attempts)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithNotifier reports terminal failures to n on the given channel.
func WithNotifier(n notify.Notifier, channel string) RouterOption {
	return func(r *Router) {
		r.notifier = n
		r.notifyChannel = channel
	}
}

// WithBreakers guards each provider with a circuit breaker built from cfg.
// Only fallback-eligible failures count against a breaker. In auto mode a
// provider whose breaker rejects the call is passed over without counting
// as an attempt; explicit requests are never rejected but still feed the
// breaker.
func WithBreakers(cfg resilience.CircuitBreakerConfig) RouterOption {
	return func(r *Router) {
		r.breakerCfg = &cfg
	}
}

// WithMaxConcurrent bounds TranscribeBatch concurrency.
func WithMaxConcurrent(n int) RouterOption {
	return func(r *Router) { r.maxConcurrent = n }
}

// WithRouterMetrics records fallbacks on m.
func WithRouterMetrics(m *observability.Metrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l *logger.Logger) RouterOption {
	return func(r *Router) { r.log = l }
}

// Router resolves a provider for each request and applies the fallback policy.
type Router struct {
	registry      *Registry
	notifier      notify.Notifier
	notifyChannel string
	breakerCfg    *resilience.CircuitBreakerConfig
	breakers      map[string]*resilience.CircuitBreaker
	guarded       map[string]Endpoint
	bulkhead      *resilience.Bulkhead
	maxConcurrent int
	metrics       *observability.Metrics
	log           *logger.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewRouter creates a router over registry.
func NewRouter(registry *Registry, opts ...RouterOption) *Router {
	r := &Router{registry: registry, maxConcurrent: 4}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("transcription.router")
	}
	if r.breakerCfg != nil {
		r.breakers = make(map[string]*resilience.CircuitBreaker)
		r.guarded = make(map[string]Endpoint)
		for _, p := range registry.providers.All() {
			cfg := *r.breakerCfg
			cfg.Name = p.Name()
			cfg.IsFailure = IsFallbackEligible
			if cfg.OnStateChange == nil {
				cfg.OnStateChange = r.logStateChange
			}
			cb := resilience.NewCircuitBreaker(cfg)
			r.breakers[p.Name()] = cb
			r.guarded[p.Name()] = provider.WithCircuitBreaker[TranscribeInput, *Result](cb)(AsEndpoint(p))
		}
	}
	bh := resilience.DefaultBulkheadConfig("transcription.batch")
	bh.MaxConcurrent = r.maxConcurrent
	r.bulkhead = resilience.NewBulkhead(bh)
	return r
}

// Registry returns the router's registry.
func (r *Router) Registry() *Registry { return r.registry }

// Breaker returns the circuit breaker guarding name, if breakers are enabled.
func (r *Router) Breaker(name string) (*resilience.CircuitBreaker, bool) {
	cb, ok := r.breakers[name]
	return cb, ok
}

// Transcribe routes one request. A named provider is called directly and
// its failure returned unchanged. In auto mode a fallback-eligible failure
// is retried once on the next available provider; if that also fails a
// *FallbackError is returned.
func (r *Router) Transcribe(ctx context.Context, audioPath string, req Request) (*Result, error) {
	if logger.CorrelationID(ctx) == "" {
		ctx = logger.ContextWithCorrelationID(ctx, uuid.NewString())
	}
	if req.Provider != "" && req.Provider != ProviderAuto {
		return r.transcribeExplicit(ctx, audioPath, req)
	}
	return r.transcribeAuto(ctx, audioPath, req)
}

func (r *Router) transcribeExplicit(ctx context.Context, audioPath string, req Request) (*Result, error) {
	p, err := r.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	res, attempt, _ := r.attempt(ctx, p, audioPath, req.Options, modeExplicit, 1)
	if attempt != nil {
		if IsFallbackEligible(attempt.Err) {
			r.report(ctx, audioPath, modeExplicit, []Attempt{*attempt})
		}
		return nil, attempt.Err
	}
	return res, nil
}

func (r *Router) transcribeAuto(ctx context.Context, audioPath string, req Request) (*Result, error) {
	tried := make(map[string]bool)
	first, res, failed, err := r.pick(ctx, audioPath, req.Options, 1, tried)
	if err != nil {
		r.log.WithContext(ctx).Error("no provider available", logger.Fields(
			logger.FieldMode, modeAuto,
			logger.FieldFile, audioPath,
		))
		r.report(ctx, audioPath, modeAuto, nil)
		return nil, err
	}
	if failed == nil {
		return res, nil
	}
	if !IsFallbackEligible(failed.Err) || ctx.Err() != nil {
		if IsFallbackEligible(failed.Err) {
			r.report(ctx, audioPath, modeAuto, []Attempt{*failed})
		}
		return nil, failed.Err
	}

	tried[first.Name()] = true
	second, res, failedAgain, err := r.pick(ctx, audioPath, req.Options, 2, tried)
	if err != nil {
		r.log.WithContext(ctx).Warn("no fallback provider available", logger.Fields(
			logger.FieldProvider, first.Name(),
			logger.FieldErrorCode, string(failed.Code),
		))
		r.report(ctx, audioPath, modeAuto, []Attempt{*failed})
		return nil, failed.Err
	}

	r.metrics.RecordFallback(ctx, first.Name(), second.Name(), string(failed.Code))
	r.log.WithContext(ctx).Info("fell back to next provider", logger.Fields(
		"from", first.Name(),
		"to", second.Name(),
		logger.FieldErrorCode, string(failed.Code),
	))
	if failedAgain == nil {
		return res, nil
	}
	attempts := []Attempt{*failed, *failedAgain}
	r.report(ctx, audioPath, modeAuto, attempts)
	return nil, &FallbackError{Attempts: attempts}
}

// pick selects the first available provider not in tried and calls it. A
// provider whose breaker turns the call away joins tried and selection
// moves on, so a half-open provider takes only as many probes as its
// breaker admits.
func (r *Router) pick(ctx context.Context, audioPath string, opts Options, n int, tried map[string]bool) (Provider, *Result, *Attempt, error) {
	for {
		p, err := r.registry.selectFirst(ctx, r.skipOpen(tried))
		if err != nil {
			return nil, nil, nil, err
		}
		res, failed, rejected := r.attempt(ctx, p, audioPath, opts, modeAuto, n)
		if !rejected {
			return p, res, failed, nil
		}
		tried[p.Name()] = true
		r.log.WithContext(ctx).Debug("circuit breaker rejected provider", logger.Fields(logger.FieldProvider, p.Name()))
	}
}

// call runs one Transcribe on p. Auto mode goes through p's breaker, which
// may reject it; explicit mode calls p directly and records the outcome.
func (r *Router) call(ctx context.Context, p Provider, audioPath string, opts Options, mode string) (*Result, error) {
	if ep, ok := r.guarded[p.Name()]; ok && mode == modeAuto {
		return ep.Execute(ctx, TranscribeInput{AudioPath: audioPath, Options: opts})
	}
	res, err := p.Transcribe(ctx, audioPath, opts)
	if cb, ok := r.breakers[p.Name()]; ok {
		cb.Record(err)
	}
	return res, err
}

// attempt calls p once. A failure is returned as an Attempt whose Err is
// always an *errors.AppError. rejected reports that p's breaker refused the
// call, in which case nothing was sent and nothing is logged as an attempt.
func (r *Router) attempt(ctx context.Context, p Provider, audioPath string, opts Options, mode string, n int) (res *Result, failed *Attempt, rejected bool) {
	start := time.Now()
	res, err := r.call(ctx, p, audioPath, opts, mode)
	elapsed := time.Since(start).Milliseconds()
	if mode == modeAuto && stderrors.Is(err, resilience.ErrCircuitOpen) {
		return nil, nil, true
	}

	fields := logger.Fields(
		logger.FieldProvider, p.Name(),
		logger.FieldMode, mode,
		logger.FieldAttempt, n,
		logger.FieldFile, audioPath,
		logger.FieldElapsed, elapsed,
	)
	log := r.log.WithContext(ctx)
	if err == nil {
		fields[logger.FieldStatus] = "ok"
		log.Info("transcription attempt succeeded", fields)
		return res, nil, false
	}

	appErr := Classify(err)
	fields[logger.FieldStatus] = "error"
	fields[logger.FieldErrorCode] = string(appErr.Code)
	fields[logger.FieldError] = appErr.Message
	log.Warn("transcription attempt failed", fields)
	return nil, &Attempt{
		Provider:  p.Name(),
		Code:      appErr.Code,
		Message:   appErr.Message,
		ElapsedMs: elapsed,
		Err:       appErr,
	}, false
}

// skipOpen skips providers already tried for this request and any provider
// whose breaker currently rejects calls.
func (r *Router) skipOpen(tried map[string]bool) func(Provider) bool {
	return func(p Provider) bool {
		if tried[p.Name()] {
			return true
		}
		if cb, ok := r.breakers[p.Name()]; ok && !cb.Allow() {
			r.log.Debug("skipping provider with open circuit", logger.Fields(logger.FieldProvider, p.Name()))
			return true
		}
		return false
	}
}

// report sends a terminal failure to the notifier without blocking the
// caller. Failures reported after Wait are logged but not sent.
func (r *Router) report(ctx context.Context, audioPath, mode string, attempts []Attempt) {
	if r.notifier == nil {
		return
	}
	meta := map[string]any{
		"file": audioPath,
		"mode": mode,
	}
	if id := logger.CorrelationID(ctx); id != "" {
		meta[logger.FieldCorrelationID] = id
	}
	text := "transcription failed: no provider available"
	if len(attempts) > 0 {
		parts := make([]string, 0, len(attempts))
		for _, a := range attempts {
			parts = append(parts, fmt.Sprintf("%s=%s", a.Provider, a.Code))
		}
		meta["attempts"] = strings.Join(parts, ",")
		text = fmt.Sprintf("transcription failed after %d attempt(s)", len(attempts))
	}
	msg := notify.Message{Channel: r.notifyChannel, Message: text, Metadata: meta}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.WithContext(ctx).Warn("router closed, failure notification dropped", logger.Fields(
			logger.FieldMode, mode,
			logger.FieldFile, audioPath,
		))
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	go func() {
		defer r.pending.Done()
		defer cancel()
		for channel, err := range r.notifier.Send(nctx, msg) {
			if err != nil {
				r.log.Warn("failure notification not delivered", logger.Fields(
					"channel", channel,
					logger.FieldError, err,
				))
			}
		}
	}()
}

// Wait stops the router from sending further failure notifications and
// blocks until those already in flight have finished. Transcription keeps
// working after Wait.
func (r *Router) Wait() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.pending.Wait()
}

func (r *Router) logStateChange(name string, from, to resilience.State) {
	r.log.Warn("circuit breaker state changed", logger.Fields(
		logger.FieldProvider, name,
		"from", from.String(),
		"to", to.String(),
	))
}

// BatchResult is the outcome for one file of a batch.
type BatchResult struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// TranscribeBatch transcribes paths concurrently, bounded by the router's
// max concurrency. Results are in input order and fail independently.
func (r *Router) TranscribeBatch(ctx context.Context, paths []string, req Request) []BatchResult {
	results := make([]BatchResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		results[i].Path = path
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := resilience.ExecuteWithResult(r.bulkhead, ctx, func() (*Result, error) {
				return r.Transcribe(ctx, path, req)
			})
			results[i].Result, results[i].Err = res, err
		}()
	}
	wg.Wait()
	return results
}
