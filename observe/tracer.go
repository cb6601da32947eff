package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SiteMeta describes a cached call site for telemetry purposes.
type SiteMeta struct {
	Handler  string // handler name (may be empty)
	Request  string // request type name
	Response string // response type name
	Profile  string // profile the site resolved against (may be empty)
}

// SpanName returns the deterministic span name for this site.
// Format: cache.<handler> or cache.<request type>
func (m SiteMeta) SpanName() string {
	return "cache." + m.ID()
}

// ID identifies the site: the handler name, or the request type when the
// handler is unnamed.
func (m SiteMeta) ID() string {
	if m.Handler != "" {
		return m.Handler
	}
	return m.Request
}

func (m SiteMeta) fields() []Field {
	fields := []Field{{Key: "cache.site", Value: m.ID()}}
	if m.Request != "" {
		fields = append(fields, Field{Key: "cache.request_type", Value: m.Request})
	}
	if m.Response != "" {
		fields = append(fields, Field{Key: "cache.response_type", Value: m.Response})
	}
	if m.Profile != "" {
		fields = append(fields, Field{Key: "cache.profile", Value: m.Profile})
	}
	return fields
}

func (m SiteMeta) attributes() []attribute.KeyValue {
	fields := m.fields()
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, attribute.String(f.Key, f.Value.(string)))
	}
	return attrs
}

// Outcome is how a cached invocation was served.
type Outcome string

const (
	// OutcomeHit means the response came from the cache.
	OutcomeHit Outcome = "hit"
	// OutcomeMiss means the handler ran.
	OutcomeMiss Outcome = "miss"
	// OutcomeError means the backend failed before a hit or miss was known.
	OutcomeError Outcome = "error"
)

// Tracer wraps OpenTelemetry tracing around cached invocations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for one invocation of the site.
	StartSpan(ctx context.Context, meta SiteMeta) (context.Context, trace.Span)

	// EndSpan records the outcome and error, then ends the span.
	EndSpan(span trace.Span, outcome Outcome, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &otelTracer{tracer: t}
}

func (t *otelTracer) StartSpan(ctx context.Context, meta SiteMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *otelTracer) EndSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(
		attribute.String("cache.outcome", string(outcome)),
		attribute.Bool("cache.hit", outcome == OutcomeHit),
		attribute.Bool("cache.error", err != nil),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &otelTracer{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
