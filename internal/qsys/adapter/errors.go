package adapter

import "errors"

// Domain errors for the adapter package.
var (
	// ErrNotInitialized is returned when an adapter is used before Initialize.
	ErrNotInitialized = errors.New("adapter: not initialized")

	// ErrInvalidIndex is returned for an out-of-range input, output or
	// snapshot number.
	ErrInvalidIndex = errors.New("adapter: index out of range")
)
