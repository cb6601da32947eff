package health

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/jonwraymond/pipecache/cache"
)

// CheckKeyPrefix starts every key a ProviderChecker writes. Each check
// appends its checker name and start time, so concurrent checks against
// a shared provider never touch each other's entries.
const CheckKeyPrefix = "__pipecache_health__"

// ProviderChecker verifies a cache.Provider by writing, reading back and
// removing a scratch entry.
type ProviderChecker struct {
	name     string
	provider cache.Provider

	// SlowThreshold marks a successful round trip as degraded when it
	// takes longer. Zero disables the check.
	SlowThreshold time.Duration
}

// NewProviderChecker creates a checker for p.
func NewProviderChecker(name string, p cache.Provider) *ProviderChecker {
	return &ProviderChecker{name: name, provider: p}
}

// Name returns the checker name.
func (c *ProviderChecker) Name() string { return c.name }

// Check runs the round trip. The scratch entry expires on its own if
// Remove is never reached.
func (c *ProviderChecker) Check(ctx context.Context) Result {
	start := time.Now()
	want := start.UnixNano()
	key := c.checkKey(want)
	cfg := cache.Config{TTL: time.Minute}

	if err := c.provider.Store(ctx, key, want, cfg); err != nil {
		return Unhealthy("store failed", err)
	}

	got, found, err := c.provider.TryGet(ctx, key, cfg)
	if err != nil {
		return Unhealthy("lookup failed", err)
	}
	if !found || got != want {
		return Unhealthy("value not read back", fmt.Errorf("%w: found=%v", ErrRoundTripMismatch, found))
	}

	if _, err := c.provider.Remove(ctx, key); err != nil {
		return Unhealthy("remove failed", err)
	}

	elapsed := time.Since(start)
	if c.SlowThreshold > 0 && elapsed > c.SlowThreshold {
		return Degraded(fmt.Sprintf("round trip took %v", elapsed)).withDuration(elapsed)
	}
	return Healthy("round trip ok").withDuration(elapsed)
}

func (c *ProviderChecker) checkKey(nonce int64) string {
	return CheckKeyPrefix + ":" + c.name + ":" + strconv.FormatInt(nonce, 10)
}

func (r Result) withDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// ForRegistry builds an aggregator with one checker per distinct provider
// in reg. The process-wide provider is checked as "default"; a named
// provider that is the same instance is not checked twice.
func ForRegistry(reg *cache.Registry, config ...AggregatorConfig) *Aggregator {
	agg := NewAggregator(config...)
	var seen []cache.Provider
	add := func(name string, p cache.Provider) {
		for _, s := range seen {
			if sameProvider(s, p) {
				return
			}
		}
		seen = append(seen, p)
		agg.Register(NewProviderChecker(name, p))
	}

	if p, ok := reg.Default(); ok {
		add("default", p)
	}
	for _, name := range reg.Names() {
		if p, ok := reg.Lookup(name); ok {
			add(name, p)
		}
	}
	return agg
}

// sameProvider reports whether a and b are the same instance. Providers
// with a non-comparable dynamic type are always treated as distinct.
func sameProvider(a, b cache.Provider) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
