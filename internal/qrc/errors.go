package qrc

import "errors"

// Domain errors for the qrc package.
var (
	// ErrConnectionFailed is returned when the TCP connection to a Core
	// cannot be established.
	ErrConnectionFailed = errors.New("qrc: connection to core failed")

	// ErrNotConnected is returned when an operation needs a live connection.
	ErrNotConnected = errors.New("qrc: not connected to core")

	// ErrInvalidConfig is returned when a session configuration is unusable.
	ErrInvalidConfig = errors.New("qrc: invalid configuration")

	// ErrInvalidMessage is returned when an inbound frame is not valid JSON-RPC.
	ErrInvalidMessage = errors.New("qrc: invalid message")

	// ErrFrameTooLarge is returned when an inbound frame exceeds maxFrameSize.
	ErrFrameTooLarge = errors.New("qrc: frame too large")
)
