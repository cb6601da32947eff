package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the built-in in-memory Provider. Expired entries are not
// swept; they are evicted by the next read that finds them.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	clock   Clock
	keyer   Keyer
}

type memoryEntry struct {
	value     any
	expiresAt time.Time // zero => never
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used for expiry. Default: SystemClock.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMemoryKeyer sets the key deriver. Default: StringKeyer.
func WithMemoryKeyer(keyer Keyer) MemoryOption {
	return func(s *MemoryStore) {
		if keyer != nil {
			s.keyer = keyer
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		clock:   SystemClock,
		keyer:   StringKeyer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key derives the key for request with the configured Keyer.
func (s *MemoryStore) Key(request any) (string, error) {
	return s.keyer.Key(request)
}

// TryGet returns the live value under key. The Config is not consulted.
func (s *MemoryStore) TryGet(_ context.Context, key string, _ Config) (any, bool, error) {
	now := s.clock.Now()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expired(now) {
		return entry.value, true, nil
	}

	// Only evict the entry we saw; a concurrent Store may have replaced it.
	s.mu.Lock()
	if s.entries[key] == entry {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	return nil, false, nil
}

// Store inserts or replaces the entry under key.
func (s *MemoryStore) Store(_ context.Context, key string, value any, cfg Config) error {
	entry := &memoryEntry{value: value}
	if cfg.TTL > 0 {
		entry.expiresAt = s.clock.Now().Add(cfg.TTL)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	return nil
}

// Remove evicts key, expired or not.
func (s *MemoryStore) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()

	return ok, nil
}

// Clear evicts every entry.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they expired.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Provider
var _ Provider = (*MemoryStore)(nil)
