package cache

import (
	"context"
	"sync"

	"github.com/jellydator/ttlcache/v3"
)

// TTLStore is a Provider backed by github.com/jellydator/ttlcache/v3.
//
// Reads never extend an entry's lifetime. Expired entries are evicted lazily
// on read, or periodically when WithAutoCleanup is set.
type TTLStore struct {
	c     *ttlcache.Cache[string, any]
	keyer Keyer

	autoCleanup bool
	closeOnce   sync.Once
}

// TTLOption configures a TTLStore.
type TTLOption func(*TTLStore)

// WithTTLKeyer sets the key deriver. Default: StringKeyer.
func WithTTLKeyer(keyer Keyer) TTLOption {
	return func(s *TTLStore) {
		if keyer != nil {
			s.keyer = keyer
		}
	}
}

// WithAutoCleanup starts ttlcache's background expiry loop. Call Close to
// stop it.
func WithAutoCleanup() TTLOption {
	return func(s *TTLStore) {
		s.autoCleanup = true
	}
}

// NewTTLStore creates a ttlcache-backed store.
func NewTTLStore(opts ...TTLOption) *TTLStore {
	s := &TTLStore{
		c:     ttlcache.New[string, any](ttlcache.WithDisableTouchOnHit[string, any]()),
		keyer: StringKeyer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.autoCleanup {
		go s.c.Start()
	}
	return s
}

// Key derives the key for request with the configured Keyer.
func (s *TTLStore) Key(request any) (string, error) {
	return s.keyer.Key(request)
}

// TryGet returns the live value under key.
func (s *TTLStore) TryGet(_ context.Context, key string, _ Config) (any, bool, error) {
	item := s.c.Get(key)
	if item == nil {
		// ttlcache hides expired items from Get but keeps them until swept.
		// Sweeping by expiry rather than by key leaves a concurrent fresh
		// Set untouched.
		s.c.DeleteExpired()
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Store inserts or replaces the entry under key.
func (s *TTLStore) Store(_ context.Context, key string, value any, cfg Config) error {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	s.c.Set(key, value, ttl)
	return nil
}

// Remove evicts key. Only live entries are reported as present.
func (s *TTLStore) Remove(_ context.Context, key string) (bool, error) {
	if _, ok := s.c.GetAndDelete(key); ok {
		return true, nil
	}
	// Drop an expired leftover under key, if any.
	s.c.Delete(key)
	return false, nil
}

// Clear evicts every entry.
func (s *TTLStore) Clear(_ context.Context) error {
	s.c.DeleteAll()
	return nil
}

// Len returns the number of entries held by the underlying cache.
func (s *TTLStore) Len() int {
	return s.c.Len()
}

// Close stops the background expiry loop, if one was started.
func (s *TTLStore) Close() error {
	if s.autoCleanup {
		s.closeOnce.Do(s.c.Stop)
	}
	return nil
}

// Ensure TTLStore implements Provider
var _ Provider = (*TTLStore)(nil)
