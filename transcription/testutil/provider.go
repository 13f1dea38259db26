// Package testutil provides a scriptable transcription.Provider for router
// and registry tests.
package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/sttkit/transcription"
)

// Provider is a fake transcription.Provider. Each Transcribe call consumes
// the next scripted step; the last step repeats.
type Provider struct {
	name string
	caps transcription.Capabilities

	mu        sync.Mutex
	available bool
	steps     []Step
	calls     int
	inits     int
	paths     []string
}

// Step is one scripted outcome.
type Step struct {
	Result *transcription.Result
	Err    error
	// Hold, when set, blocks the call until it is closed or ctx is done.
	Hold <-chan struct{}
}

// Option configures a fake provider.
type Option func(*Provider)

// WithSteps scripts Transcribe outcomes in call order.
func WithSteps(steps ...Step) Option {
	return func(p *Provider) { p.steps = steps }
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return WithSteps(Step{Err: err})
}

// Unavailable makes Initialize report missing credentials.
func Unavailable() Option {
	return func(p *Provider) { p.available = false }
}

// WithCapabilities sets the static capabilities.
func WithCapabilities(c transcription.Capabilities) Option {
	return func(p *Provider) { p.caps = c }
}

// NewProvider creates an available fake that returns a one-segment result.
func NewProvider(name string, opts ...Option) *Provider {
	p := &Provider{
		name:      name,
		available: true,
		caps: transcription.Capabilities{
			MaxFileSizeBytes: 25 << 20,
			SupportedFormats: []string{"mp3", "wav"},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.caps.Name = name
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// Initialize reports the scripted availability.
func (p *Provider) Initialize() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	return p.available
}

// IsAvailable calls Initialize.
func (p *Provider) IsAvailable(context.Context) bool { return p.Initialize() }

// SetAvailable changes availability for later calls.
func (p *Provider) SetAvailable(v bool) {
	p.mu.Lock()
	p.available = v
	p.mu.Unlock()
}

// Transcribe returns the next scripted step.
func (p *Provider) Transcribe(ctx context.Context, audioPath string, _ transcription.Options) (*transcription.Result, error) {
	p.mu.Lock()
	p.calls++
	p.paths = append(p.paths, audioPath)
	step := Step{}
	if n := len(p.steps); n > 0 {
		step = p.steps[min(p.calls, n)-1]
	}
	p.mu.Unlock()

	if step.Hold != nil {
		select {
		case <-step.Hold:
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Result != nil {
		return step.Result, nil
	}
	return p.FormatResponse(nil, 0)
}

// FormatResponse returns a fixed result naming this provider.
func (p *Provider) FormatResponse(raw []byte, processingTimeMs int64) (*transcription.Result, error) {
	return transcription.Finalize(&transcription.Result{
		Text:             "hello from " + p.name,
		Language:         "en",
		Segments:         []transcription.Segment{{Start: 0, End: 1, Text: "hello from " + p.name}},
		ProcessingTimeMs: processingTimeMs,
		Provider:         p.name,
		Model:            "fake",
		Raw:              transcription.RawCopy(raw),
	}), nil
}

// Capabilities returns the static capabilities.
func (p *Provider) Capabilities() transcription.Capabilities { return p.caps.Clone() }

// EstimateCost returns 0.
func (p *Provider) EstimateCost(string) (float64, error) { return 0, nil }

// Calls returns how many times Transcribe ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Initializations returns how many times Initialize ran.
func (p *Provider) Initializations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits
}

// Paths returns the audio paths passed to Transcribe.
func (p *Provider) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}
