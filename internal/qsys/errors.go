package qsys

import "errors"

// Domain errors for the qsys package.
var (
	// ErrUnboundControl is returned when a send is attempted on a Control
	// that does not belong to a Component.
	ErrUnboundControl = errors.New("qsys: control is not bound to a component")

	// ErrInvalidValue is returned when a value does not match its value kind
	// or cannot be represented on the wire (NaN, ±Inf).
	ErrInvalidValue = errors.New("qsys: invalid value")

	// ErrInvalidToken is returned when a correlation token cannot be decoded.
	ErrInvalidToken = errors.New("qsys: invalid correlation token")

	// ErrEncodingFailed is returned when a command envelope cannot be serialised.
	ErrEncodingFailed = errors.New("qsys: command encoding failed")
)
