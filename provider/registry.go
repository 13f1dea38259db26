package provider

import (
	"fmt"
	"slices"
	"sync"
)

// Registry holds named provider instances in priority order.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	instances map[string]T
	order     []string
}

// NewRegistry creates a new empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{instances: make(map[string]T)}
}

// Register adds p at the lowest priority. Names must be unique.
func (r *Registry[T]) Register(p T) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("provider name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.instances[name] = p
	r.order = append(r.order, name)
	return nil
}

// SetPriority reorders the registry. Listed names come first in the given
// order; unlisted providers keep their registration order after them.
// Unknown names are ignored.
func (r *Registry[T]) SetPriority(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order := make([]string, 0, len(r.order))
	for _, name := range names {
		if _, ok := r.instances[name]; ok && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	for _, name := range r.order {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	r.order = order
}

// Get returns a provider by name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Names returns provider names in priority order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All returns providers in priority order.
func (r *Registry[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.instances[name])
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
