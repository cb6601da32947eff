package cache

import (
	"fmt"
	"strings"
	"time"
)

// DefaultProfileName is the profile used when a call site names none, or
// names one that is not registered.
const DefaultProfileName = "Default"

// ProfileOptions is a named, reusable bundle of cache settings.
type ProfileOptions struct {
	// TTL applies to every call site using the profile unless the call site
	// sets its own. Zero leaves the TTL unset.
	TTL time.Duration
}

// Settings converts the profile to a merge layer.
func (p ProfileOptions) Settings() Settings {
	return Settings{TTL: p.TTL}
}

// Options holds the global profiles. Profile names match case-insensitively.
type Options struct {
	Profiles map[string]ProfileOptions
}

// WithProfile returns a copy of o with the named profile set.
func (o Options) WithProfile(name string, ttl time.Duration) Options {
	profiles := make(map[string]ProfileOptions, len(o.Profiles)+1)
	for k, v := range o.Profiles {
		profiles[k] = v
	}
	profiles[name] = ProfileOptions{TTL: ttl}
	return Options{Profiles: profiles}
}

// WithDefaultProfile returns a copy of o with the Default profile set.
func (o Options) WithDefaultProfile(ttl time.Duration) Options {
	return o.WithProfile(DefaultProfileName, ttl)
}

// Validate rejects negative TTLs, blank names and names that only differ
// by case.
func (o Options) Validate() error {
	seen := make(map[string]string, len(o.Profiles))
	for name, p := range o.Profiles {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: profile name is blank", ErrInvalidProfile)
		}
		if p.TTL < 0 {
			return fmt.Errorf("%w: profile %q has ttl %v", ErrInvalidTTL, name, p.TTL)
		}
		folded := normalizeProfile(name)
		if other, dup := seen[folded]; dup {
			return fmt.Errorf("%w: profiles %q and %q differ only by case", ErrInvalidProfile, other, name)
		}
		seen[folded] = name
	}
	return nil
}

// CallSite is the per-handler cache configuration supplied at registration.
type CallSite struct {
	// Handler distinguishes handlers serving the same request type.
	Handler string

	// Profile selects a global profile. Blank means Default.
	Profile string

	// TTL overrides any profile TTL when positive. Zero defers to the
	// profile and defaults.
	TTL time.Duration

	// Provider binds a specific backend to this call site.
	Provider Provider

	// ProviderName binds a backend registered under this name. Ignored
	// when Provider is set.
	ProviderName string
}

// Settings converts the call site to a merge layer.
func (s CallSite) Settings() Settings {
	return Settings{TTL: s.TTL}
}

// Validate rejects negative TTLs and whitespace-only provider names.
func (s CallSite) Validate() error {
	if s.TTL < 0 {
		return fmt.Errorf("%w: call site %q has ttl %v", ErrInvalidTTL, s.Handler, s.TTL)
	}
	if s.ProviderName != "" && strings.TrimSpace(s.ProviderName) == "" {
		return fmt.Errorf("%w: call site %q has a blank provider name", ErrUnknownProvider, s.Handler)
	}
	return nil
}

// normalizeProfile maps blank names to Default and folds case.
func normalizeProfile(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProfileName
	}
	return strings.ToLower(name)
}
