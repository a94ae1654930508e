package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider names to implementations.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Registering the same name
// twice is a programming error and is rejected.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Resolve looks up a provider by name. The lookup also accepts the
// conventional "cosmo_<name>" prefix form so configs written against the
// packaged provider names keep working.
func (r *Registry) Resolve(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if p, ok := r.providers["cosmo_"+name]; ok {
		return p, nil
	}
	return nil, &NotFoundError{Name: name}
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultRegistry holds the providers compiled into this binary.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// MustRegister registers p in the default registry and panics on conflict.
// Intended for use from provider package init functions.
func MustRegister(p Provider) {
	if err := defaultRegistry.Register(p); err != nil {
		panic(err)
	}
}
