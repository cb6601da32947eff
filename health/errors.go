package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrRoundTripMismatch indicates a provider returned something other than
	// the value it was just given.
	ErrRoundTripMismatch = errors.New("health: round trip value mismatch")
)
