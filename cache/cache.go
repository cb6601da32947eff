package cache

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Provider is the capability interface every cache backend implements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use without
// external locking; no call may observe a partially written entry.
// - Expiry: the TTL passed to Store governs expiry; the Config passed to
// TryGet does not extend or shorten it.
// - Errors: TryGet reports (nil, false, nil) on a miss. Errors are reserved
// for backend failures and are propagated to the caller unchanged.
type Provider interface {
	// Key derives the cache key for a request.
	Key(request any) (string, error)

	// TryGet returns the live value stored under key. An expired entry is
	// evicted and reported as a miss.
	TryGet(ctx context.Context, key string, cfg Config) (any, bool, error)

	// Store inserts or fully replaces the entry under key. Expiry is
	// now+cfg.TTL, or never when cfg.TTL is zero.
	Store(ctx context.Context, key string, value any, cfg Config) error

	// Remove evicts key regardless of its expiry state and reports whether
	// it was present.
	Remove(ctx context.Context, key string) (bool, error)

	// Clear evicts every entry.
	Clear(ctx context.Context) error
}

// Clock supplies the current time to stores.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// Identity names the request/response pair and handler a middleware serves.
// Resolved configs and bound middleware are memoized per Identity.
type Identity struct {
	Request  reflect.Type
	Response reflect.Type
	Handler  string
}

// IdentityOf builds the Identity for a Req/Resp pair served by handler.
func IdentityOf[Req, Resp any](handler string) Identity {
	return Identity{
		Request:  reflect.TypeFor[Req](),
		Response: reflect.TypeFor[Resp](),
		Handler:  handler,
	}
}

// String renders the identity as handler(Req) Resp.
func (id Identity) String() string {
	return fmt.Sprintf("%s(%v) %v", id.Handler, id.Request, id.Response)
}

// ValidateKey checks that a derived key can be used for caching.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
