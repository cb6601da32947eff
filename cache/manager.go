package cache

import (
	"fmt"
	"sync"

	"github.com/jonwraymond/pipecache/observe"
)

// Manager owns the process-wide cache wiring: profiles, resolved configs,
// provider bindings and the middleware built for each call site.
// Construct one at startup and share it.
type Manager struct {
	resolver *Resolver
	registry *Registry

	instruments  observe.Instruments
	errorHandler ErrorHandler
	singleFlight bool

	mu    sync.Mutex
	bound map[resolveKey]any // *Middleware[Req, Resp]
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	global       Provider
	named        []namedProvider
	noDefault    bool
	storeOpts    []MemoryOption
	instruments  *observe.Instruments
	logger       observe.Logger
	errorHandler ErrorHandler
	singleFlight bool
}

type namedProvider struct {
	name string
	p    Provider
}

// WithProvider sets the process-wide provider, replacing the built-in
// MemoryStore for every call site without its own override.
func WithProvider(p Provider) ManagerOption {
	return func(c *managerConfig) { c.global = p }
}

// WithNamedProvider registers p for call sites selecting it by
// CallSite.ProviderName.
func WithNamedProvider(name string, p Provider) ManagerOption {
	return func(c *managerConfig) { c.named = append(c.named, namedProvider{name: name, p: p}) }
}

// WithoutDefaultProvider disables the built-in MemoryStore. Registering a
// call site with no provider bound then fails with ErrNoProvider.
func WithoutDefaultProvider() ManagerOption {
	return func(c *managerConfig) { c.noDefault = true }
}

// WithClock sets the clock of the built-in MemoryStore.
func WithClock(clock Clock) ManagerOption {
	return func(c *managerConfig) { c.storeOpts = append(c.storeOpts, WithMemoryClock(clock)) }
}

// WithKeyer sets the key deriver of the built-in MemoryStore.
func WithKeyer(keyer Keyer) ManagerOption {
	return func(c *managerConfig) { c.storeOpts = append(c.storeOpts, WithMemoryKeyer(keyer)) }
}

// WithInstruments sets the telemetry every middleware reports to.
func WithInstruments(ins observe.Instruments) ManagerOption {
	return func(c *managerConfig) { c.instruments = &ins }
}

// WithLogger sets only the logger, keeping tracing and metrics as no-ops
// unless WithInstruments is also given.
func WithLogger(logger observe.Logger) ManagerOption {
	return func(c *managerConfig) { c.logger = logger }
}

// WithErrorHandler sets the sink for store failures after a successful
// handler run. Default: log at error level.
func WithErrorHandler(h ErrorHandler) ManagerOption {
	return func(c *managerConfig) { c.errorHandler = h }
}

// WithSingleFlight coalesces concurrent misses per key in every middleware.
func WithSingleFlight() ManagerOption {
	return func(c *managerConfig) { c.singleFlight = true }
}

// NewManager validates opts and builds the resolver and registry. All
// configuration errors surface here or from Register.
func NewManager(opts Options, mopts ...ManagerOption) (*Manager, error) {
	var c managerConfig
	for _, opt := range mopts {
		opt(&c)
	}

	resolver, err := NewResolver(opts)
	if err != nil {
		return nil, err
	}

	regOpts := []RegistryOption{WithDefaultStoreOptions(c.storeOpts...)}
	if c.noDefault {
		regOpts = append(regOpts, WithoutDefault())
	}
	registry := NewRegistry(regOpts...)

	if c.global != nil {
		if err := registry.SetDefault(c.global); err != nil {
			return nil, err
		}
	}
	for _, np := range c.named {
		if err := registry.Register(np.name, np.p); err != nil {
			return nil, err
		}
	}

	ins := observe.NopInstruments()
	if c.instruments != nil {
		ins = *c.instruments
	}
	if c.logger != nil {
		ins.Logger = c.logger
	}

	return &Manager{
		resolver:     resolver,
		registry:     registry,
		instruments:  observe.NewInstruments(ins.Tracer, ins.Metrics, ins.Logger),
		errorHandler: c.errorHandler,
		singleFlight: c.singleFlight,
		bound:        make(map[resolveKey]any),
	}, nil
}

// Resolver returns the config resolver.
func (m *Manager) Resolver() *Resolver { return m.resolver }

// Registry returns the provider registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Provider returns the process-wide provider, for handlers that invalidate
// entries out of band.
func (m *Manager) Provider() (Provider, error) {
	p, ok := m.registry.Default()
	if !ok {
		return nil, ErrNoProvider
	}
	return p, nil
}

// Register returns the middleware for a call site, building it on first
// use. Later calls with the same handler, types and profile return the same
// middleware; its provider and config stay fixed for its lifetime.
func Register[Req, Resp any](m *Manager, site CallSite) (*Middleware[Req, Resp], error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}

	id := IdentityOf[Req, Resp](site.Handler)
	key := resolveKey{id: id, profile: normalizeProfile(site.Profile)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.bound[key]; ok {
		return existing.(*Middleware[Req, Resp]), nil
	}

	provider, err := m.registry.Resolve(id, site)
	if err != nil {
		return nil, err
	}

	cfg := m.resolver.Resolve(id, site.Profile, site.Settings())

	opts := []MiddlewareOption{
		WithMiddlewareInstruments(m.instruments),
		withProfileName(key.profile),
	}
	if m.errorHandler != nil {
		opts = append(opts, WithMiddlewareErrorHandler(m.errorHandler))
	}
	if m.singleFlight {
		opts = append(opts, WithMiddlewareSingleFlight())
	}

	mw, err := NewMiddleware[Req, Resp](id, provider, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("cache: register %s: %w", id, err)
	}
	m.bound[key] = mw
	return mw, nil
}
