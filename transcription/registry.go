package transcription

import (
	"context"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/provider"
)

// DefaultPriority is the auto-mode provider order.
var DefaultPriority = []string{"elevenlabs", "openai", "cloudflare", "whisper"}

// Registry holds the configured providers in a fixed priority order. It is
// built once at startup and read-only afterwards.
type Registry struct {
	providers *provider.Registry[Provider]
}

// NewRegistry creates a registry from providers, ordered by priority. A nil
// priority uses DefaultPriority; providers it does not list follow in
// registration order.
func NewRegistry(priority []string, providers ...Provider) (*Registry, error) {
	r := &Registry{providers: provider.NewRegistry[Provider]()}
	for _, p := range providers {
		if err := r.providers.Register(p); err != nil {
			return nil, err
		}
	}
	if priority == nil {
		priority = DefaultPriority
	}
	r.providers.SetPriority(priority)
	return r, nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers.Get(name)
	if !ok {
		return nil, errors.UnknownProvider(name)
	}
	return p, nil
}

// Names returns provider names in priority order.
func (r *Registry) Names() []string { return r.providers.Names() }

// ListAvailable initializes every provider and returns those with
// credentials, in priority order. Nothing is cached between calls.
func (r *Registry) ListAvailable(ctx context.Context) []Provider {
	return provider.Available(ctx, r.providers.All())
}

// SelectDefault returns the first available provider in priority order.
func (r *Registry) SelectDefault(ctx context.Context) (Provider, error) {
	return r.selectFirst(ctx, nil)
}

func (r *Registry) selectFirst(ctx context.Context, skip func(Provider) bool) (Provider, error) {
	sel := &provider.PrioritySelector[Provider]{Skip: skip}
	p, err := sel.Select(ctx, r.providers.All())
	if err != nil {
		return nil, errors.NoProviderAvailable().WithCause(err)
	}
	return p, nil
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Name         string                `json:"name"`
	Priority     int                   `json:"priority"`
	Available    bool                  `json:"available"`
	Health       provider.HealthStatus `json:"health"`
	Capabilities Capabilities          `json:"capabilities"`
}

// Describe reports capabilities and current health for every provider in
// priority order.
func (r *Registry) Describe(ctx context.Context) []ProviderInfo {
	all := r.providers.All()
	out := make([]ProviderInfo, 0, len(all))
	for i, p := range all {
		health := provider.CheckHealth(ctx, p)
		out = append(out, ProviderInfo{
			Name:         p.Name(),
			Priority:     i + 1,
			Available:    health.Status != provider.StatusUnavailable,
			Health:       health,
			Capabilities: p.Capabilities(),
		})
	}
	return out
}
