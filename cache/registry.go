package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry decides which Provider backs a call site.
//
// Precedence: the call site's Provider, then its ProviderName, then the
// process-wide provider, then a shared built-in MemoryStore. An override
// replaces the lower layers outright; providers are never layered.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	global    Provider

	noDefault   bool
	defaultOpts []MemoryOption
	defaultOnce sync.Once
	fallback    *MemoryStore
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithoutDefault disables the built-in MemoryStore fallback. Resolving a
// call site with nothing bound then fails with ErrNoProvider.
func WithoutDefault() RegistryOption {
	return func(r *Registry) {
		r.noDefault = true
	}
}

// WithDefaultStoreOptions configures the built-in MemoryStore.
func WithDefaultStoreOptions(opts ...MemoryOption) RegistryOption {
	return func(r *Registry) {
		r.defaultOpts = append(r.defaultOpts, opts...)
	}
}

// NewRegistry creates an empty provider registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetDefault sets the process-wide provider.
func (r *Registry) SetDefault(p Provider) error {
	if p == nil {
		return ErrNilProvider
	}
	r.mu.Lock()
	r.global = p
	r.mu.Unlock()
	return nil
}

// Register binds p to name for call sites that select it by ProviderName.
func (r *Registry) Register(name string, p Provider) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: provider name is required", ErrUnknownProvider)
	}
	if p == nil {
		return ErrNilProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.providers[name] = p
	return nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.TrimSpace(name)]
	return p, ok
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

// Default returns the process-wide provider, or the built-in MemoryStore
// when none is set and the fallback is enabled.
func (r *Registry) Default() (Provider, bool) {
	r.mu.RLock()
	global := r.global
	r.mu.RUnlock()

	if global != nil {
		return global, true
	}
	if r.noDefault {
		return nil, false
	}
	r.defaultOnce.Do(func() {
		r.fallback = NewMemoryStore(r.defaultOpts...)
	})
	return r.fallback, true
}

// Resolve returns the provider for a call site.
func (r *Registry) Resolve(id Identity, site CallSite) (Provider, error) {
	if site.Provider != nil {
		return site.Provider, nil
	}

	if site.ProviderName != "" {
		p, ok := r.Lookup(site.ProviderName)
		if !ok {
			return nil, &ProviderError{Identity: id, Name: site.ProviderName, Err: ErrUnknownProvider}
		}
		return p, nil
	}

	p, ok := r.Default()
	if !ok {
		return nil, &ProviderError{Identity: id, Err: ErrNoProvider}
	}
	return p, nil
}
