package history

import "errors"

var (
	// ErrInvalidQuery is returned when a history query lacks a component or control.
	ErrInvalidQuery = errors.New("history: component and control are required")

	// ErrRecorderStopped is returned when the recorder no longer accepts entries.
	ErrRecorderStopped = errors.New("history: recorder stopped")
)
