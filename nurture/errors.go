package nurture

import "errors"

// Sentinel errors for the engine. Callers test with errors.Is; HTTP handlers
// map ErrNotFound to 404 and ErrInvalidState to 409.
var (
	// ErrNotFound is returned when a referenced sequence name, lead or
	// content key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation violates the lead's
	// state machine: recording engagement for a touchpoint that has not
	// fired, or advancing a lead that is not active.
	ErrInvalidState = errors.New("invalid state")
)
