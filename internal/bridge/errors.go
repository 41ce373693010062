package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrUnknownDeviceType is returned when a device type has no adapter.
	ErrUnknownDeviceType = errors.New("bridge: unknown device type")

	// ErrDeviceNotFound is returned when a device ID is not configured.
	ErrDeviceNotFound = errors.New("bridge: device not found")

	// ErrUnknownCommand is returned when a device type has no such command.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrInvalidParameter is returned when a command parameter is missing
	// or has the wrong type.
	ErrInvalidParameter = errors.New("bridge: invalid parameter")
)
