package cache

import (
	"errors"
	"fmt"
)

// Configuration errors. Returned by NewManager and Register, never per
// request.
var (
	// ErrInvalidTTL indicates a negative TTL in a profile or call site.
	ErrInvalidTTL = errors.New("cache: ttl must be non-negative")

	// ErrInvalidProfile indicates a blank or ambiguous profile name.
	ErrInvalidProfile = errors.New("cache: invalid profile")

	// ErrUnknownProvider indicates a call site names a provider that was
	// never registered.
	ErrUnknownProvider = errors.New("cache: provider is not registered")

	// ErrDuplicateProvider indicates a provider name registered twice.
	ErrDuplicateProvider = errors.New("cache: provider already registered")

	// ErrNilProvider indicates a nil Provider was supplied.
	ErrNilProvider = errors.New("cache: provider is nil")
)

// Runtime errors.
var (
	// ErrNoProvider indicates no Provider could be bound and the built-in
	// default was disabled.
	ErrNoProvider = errors.New("cache: no provider bound")

	// ErrInvalidKey indicates a derived key is empty.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrValueType indicates a cached value does not have the response type
	// of the middleware reading it.
	ErrValueType = errors.New("cache: cached value has unexpected type")
)

// ProviderError reports a failed provider binding for one call site.
type ProviderError struct {
	Identity Identity
	Name     string // provider name requested by the call site, if any
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v: %s (provider %q)", e.Err, e.Identity, e.Name)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Identity)
}

func (e *ProviderError) Unwrap() error { return e.Err }
