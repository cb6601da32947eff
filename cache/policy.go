package cache

import "time"

// Config is the effective cache configuration for one call site.
// It is immutable once resolved.
type Config struct {
	// TTL is how long a stored entry stays live. Zero means it never
	// expires and lives until removed or cleared.
	TTL time.Duration
}

// Settings is one configuration layer. A zero field is unset and falls
// through to the layer below.
type Settings struct {
	TTL time.Duration
}

// HasTTL reports whether this layer sets a TTL.
func (s Settings) HasTTL() bool {
	return s.TTL > 0
}

// DefaultSettings returns the built-in defaults: no expiration.
func DefaultSettings() Settings {
	return Settings{}
}

// Merge folds the three configuration layers into one Config. Priority is
// defaults < profile < site, per field.
func Merge(defaults, profile, site Settings) Config {
	cfg := Config{TTL: defaults.TTL}
	if profile.HasTTL() {
		cfg.TTL = profile.TTL
	}
	if site.HasTTL() {
		cfg.TTL = site.TTL
	}
	return cfg
}
