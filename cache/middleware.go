package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/pipecache/observe"
)

// Handler is the continuation a Middleware wraps: the rest of the pipeline
// plus the request handler.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// ErrorHandler receives store failures that happen after the handler has
// already produced a response. The response is still returned to the
// caller.
type ErrorHandler func(ctx context.Context, id Identity, key string, err error)

// Middleware applies cache-aside to one call site. It holds no per-request
// state; entries live in the bound Provider.
//
// Contract:
//   - Ordering: TryGet precedes any handler run; Store follows a successful
//     miss and never happens on a hit.
//   - Errors: handler errors are returned unchanged and never cached.
//     Provider errors from Key/TryGet are returned wrapped and the handler
//     does not run; Store errors go to the ErrorHandler.
//   - Concurrency: safe for concurrent use. Without single-flight two
//     concurrent misses on one key both run the handler; the last Store wins.
type Middleware[Req, Resp any] struct {
	id       Identity
	cfg      Config
	provider Provider
	meta     observe.SiteMeta
	obs      observe.Instruments
	logger   observe.Logger
	onError  ErrorHandler

	flight *singleflight.Group // nil unless single-flight is enabled
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	instruments  *observe.Instruments
	errorHandler ErrorHandler
	singleFlight bool
	profile      string
}

// WithMiddlewareInstruments sets the telemetry sinks.
func WithMiddlewareInstruments(ins observe.Instruments) MiddlewareOption {
	return func(o *middlewareOptions) { o.instruments = &ins }
}

// WithMiddlewareErrorHandler sets the sink for post-handler store failures.
func WithMiddlewareErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(o *middlewareOptions) { o.errorHandler = h }
}

// WithMiddlewareSingleFlight coalesces concurrent misses for the same key
// into one handler run whose result every waiter shares. Each waiter
// honors its own context; a leader's cancellation is not passed on to
// waiters that are still live.
func WithMiddlewareSingleFlight() MiddlewareOption {
	return func(o *middlewareOptions) { o.singleFlight = true }
}

func withProfileName(name string) MiddlewareOption {
	return func(o *middlewareOptions) { o.profile = name }
}

// NewMiddleware binds a provider and a resolved config to a call site.
// Most callers go through Register instead.
func NewMiddleware[Req, Resp any](id Identity, provider Provider, cfg Config, opts ...MiddlewareOption) (*Middleware[Req, Resp], error) {
	if provider == nil {
		return nil, &ProviderError{Identity: id, Err: ErrNoProvider}
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("%w: %s has ttl %v", ErrInvalidTTL, id, cfg.TTL)
	}

	var o middlewareOptions
	for _, opt := range opts {
		opt(&o)
	}

	ins := observe.NopInstruments()
	if o.instruments != nil {
		ins = observe.NewInstruments(o.instruments.Tracer, o.instruments.Metrics, o.instruments.Logger)
	}

	meta := observe.SiteMeta{
		Handler: id.Handler,
		Profile: o.profile,
	}
	if id.Request != nil {
		meta.Request = id.Request.String()
	}
	if id.Response != nil {
		meta.Response = id.Response.String()
	}

	m := &Middleware[Req, Resp]{
		id:       id,
		cfg:      cfg,
		provider: provider,
		meta:     meta,
		obs:      ins,
		logger:   ins.Logger.WithSite(meta),
		onError:  o.errorHandler,
	}
	if m.onError == nil {
		m.onError = m.logStoreError
	}
	if o.singleFlight {
		m.flight = &singleflight.Group{}
	}
	return m, nil
}

// Identity returns the call site this middleware serves.
func (m *Middleware[Req, Resp]) Identity() Identity { return m.id }

// Config returns the resolved configuration.
func (m *Middleware[Req, Resp]) Config() Config { return m.cfg }

// Provider returns the bound backend.
func (m *Middleware[Req, Resp]) Provider() Provider { return m.provider }

// Wrap returns next with cache-aside applied.
func (m *Middleware[Req, Resp]) Wrap(next Handler[Req, Resp]) Handler[Req, Resp] {
	return func(ctx context.Context, req Req) (Resp, error) {
		return m.Handle(ctx, req, next)
	}
}

// Handle serves req from the cache or from next.
func (m *Middleware[Req, Resp]) Handle(ctx context.Context, req Req, next Handler[Req, Resp]) (resp Resp, err error) {
	ctx, span := m.obs.Tracer.StartSpan(ctx, m.meta)
	outcome := observe.OutcomeMiss
	defer func() { m.obs.Tracer.EndSpan(span, outcome, err) }()

	var zero Resp

	key, err := m.key(req)
	if err != nil {
		outcome = observe.OutcomeError
		return zero, fmt.Errorf("cache: key %s: %w", m.id, err)
	}

	cached, found, err := m.provider.TryGet(ctx, key, m.cfg)
	if err != nil {
		outcome = observe.OutcomeError
		return zero, fmt.Errorf("cache: lookup %s: %w", m.id, err)
	}
	m.obs.Metrics.RecordLookup(ctx, m.meta, found)
	if found {
		outcome = observe.OutcomeHit
		v, ok := cached.(Resp)
		if !ok && cached != nil {
			return zero, fmt.Errorf("%w: %s got %T", ErrValueType, m.id, cached)
		}
		return v, nil
	}

	if m.flight == nil {
		return m.fill(ctx, key, req, next)
	}
	return m.fillShared(ctx, key, req, next)
}

// fillShared joins the in-flight fill for key, or starts one. A waiter
// stops waiting when its own context ends. When the run it joined failed
// only because the leader's context ended, the waiter fills on its own
// context instead of inheriting that cancellation.
func (m *Middleware[Req, Resp]) fillShared(ctx context.Context, key string, req Req, next Handler[Req, Resp]) (Resp, error) {
	var zero Resp

	// led is written before the result is sent on ch.
	led := false
	ch := m.flight.DoChan(key, func() (any, error) {
		led = true
		return m.fill(ctx, key, req, next)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if !led && ctx.Err() == nil && isContextErr(res.Err) {
				return m.fill(ctx, key, req, next)
			}
			return zero, res.Err
		}
		resp, _ := res.Val.(Resp)
		return resp, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fill runs the handler on a miss and writes its response back.
func (m *Middleware[Req, Resp]) fill(ctx context.Context, key string, req Req, next Handler[Req, Resp]) (Resp, error) {
	m.logger.Debug(ctx, "cache miss", observe.Field{Key: "cache.key", Value: key})

	start := time.Now()
	resp, err := next(ctx, req)
	m.obs.Metrics.RecordHandler(ctx, m.meta, time.Since(start), err)
	if err != nil {
		return resp, err
	}

	// A handler that returned after its context was cancelled may hold a
	// partial result.
	if ctx.Err() != nil {
		return resp, nil
	}

	if serr := m.provider.Store(ctx, key, resp, m.cfg); serr != nil {
		m.obs.Metrics.RecordStoreError(ctx, m.meta)
		m.onError(ctx, m.id, key, serr)
	}
	return resp, nil
}

// Invalidate removes the entry cached for req, if any.
func (m *Middleware[Req, Resp]) Invalidate(ctx context.Context, req Req) (bool, error) {
	key, err := m.key(req)
	if err != nil {
		return false, err
	}
	return m.provider.Remove(ctx, key)
}

func (m *Middleware[Req, Resp]) key(req Req) (string, error) {
	key, err := m.provider.Key(req)
	if err != nil {
		return "", err
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Middleware[Req, Resp]) logStoreError(ctx context.Context, _ Identity, key string, err error) {
	m.logger.Error(ctx, "cache store failed",
		observe.Field{Key: "cache.key", Value: key},
		observe.Field{Key: "error", Value: err},
	)
}
