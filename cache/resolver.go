package cache

import "sync"

type resolveKey struct {
	id      Identity
	profile string
}

// Resolver computes effective Configs and memoizes them per identity and
// profile for its lifetime. The first resolution for a pair wins.
type Resolver struct {
	defaults Settings
	profiles map[string]Settings // keyed by normalized name

	mu       sync.RWMutex
	resolved map[resolveKey]Config
}

// NewResolver creates a resolver over validated options.
func NewResolver(opts Options) (*Resolver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	profiles := make(map[string]Settings, len(opts.Profiles))
	for name, p := range opts.Profiles {
		profiles[normalizeProfile(name)] = p.Settings()
	}

	return &Resolver{
		defaults: DefaultSettings(),
		profiles: profiles,
		resolved: make(map[resolveKey]Config),
	}, nil
}

// Resolve returns the effective Config for id under profile. site is only
// consulted on the first call for a given (id, profile).
func (r *Resolver) Resolve(id Identity, profile string, site Settings) Config {
	key := resolveKey{id: id, profile: normalizeProfile(profile)}

	r.mu.RLock()
	cfg, ok := r.resolved[key]
	r.mu.RUnlock()
	if ok {
		return cfg
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg, ok := r.resolved[key]; ok {
		return cfg
	}
	cfg = Merge(r.defaults, r.profile(key.profile), site)
	r.resolved[key] = cfg
	return cfg
}

// profile looks up a normalized profile name, falling back to Default.
// A missing Default leaves the layer empty.
func (r *Resolver) profile(name string) Settings {
	if p, ok := r.profiles[name]; ok {
		return p
	}
	return r.profiles[normalizeProfile(DefaultProfileName)]
}

// Len returns the number of memoized configs.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resolved)
}
