// Package observe provides observability primitives for cache-aside
// middleware.
//
// It is a pure instrumentation library: it records lookups, handler runs
// and store failures as OpenTelemetry spans and metrics plus structured
// JSON logs. The cache package calls into an Instruments bundle at each
// step of a cached invocation.
package observe
