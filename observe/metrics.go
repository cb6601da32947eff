package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one cache lookup and whether it hit.
	RecordLookup(ctx context.Context, meta SiteMeta, hit bool)

	// RecordHandler records a handler run on a miss.
	RecordHandler(ctx context.Context, meta SiteMeta, duration time.Duration, err error)

	// RecordStoreError records a failed write-back after a successful handler run.
	RecordStoreError(ctx context.Context, meta SiteMeta)
}

type otelMetrics struct {
	lookups       metric.Int64Counter
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	storeErrors   metric.Int64Counter
	handlerErrors metric.Int64Counter
	handlerTime   metric.Float64Histogram
}

// NewMetrics creates the cache instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	var (
		m   otelMetrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.lookups, "cache.lookup.total", "Total number of cache lookups", "{lookup}"},
		{&m.hits, "cache.lookup.hits", "Lookups served from the cache", "{lookup}"},
		{&m.misses, "cache.lookup.misses", "Lookups that ran the handler", "{lookup}"},
		{&m.storeErrors, "cache.store.errors", "Failed writes after a successful handler run", "{error}"},
		{&m.handlerErrors, "cache.handler.errors", "Handler runs that returned an error", "{error}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInstrument, c.name, err)
		}
	}

	m.handlerTime, err = meter.Float64Histogram("cache.handler.duration_ms",
		metric.WithDescription("Handler duration on a cache miss in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w cache.handler.duration_ms: %w", ErrInstrument, err)
	}

	return &m, nil
}

func (m *otelMetrics) RecordLookup(ctx context.Context, meta SiteMeta, hit bool) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.lookups.Add(ctx, 1, opt)
	if hit {
		m.hits.Add(ctx, 1, opt)
	} else {
		m.misses.Add(ctx, 1, opt)
	}
}

func (m *otelMetrics) RecordHandler(ctx context.Context, meta SiteMeta, duration time.Duration, err error) {
	attrs := append(meta.attributes(), attribute.Bool("cache.error", err != nil))
	opt := metric.WithAttributes(attrs...)
	if err != nil {
		m.handlerErrors.Add(ctx, 1, opt)
	}
	m.handlerTime.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *otelMetrics) RecordStoreError(ctx context.Context, meta SiteMeta) {
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

type nopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordLookup(context.Context, SiteMeta, bool)                   {}
func (nopMetrics) RecordHandler(context.Context, SiteMeta, time.Duration, error) {}
func (nopMetrics) RecordStoreError(context.Context, SiteMeta)                     {}
