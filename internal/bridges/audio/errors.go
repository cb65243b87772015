package audio

import "errors"

// Sentinel errors for the audio bridge.
var (
	// ErrUnknownCommand indicates a command name the bridge does not handle.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidParameters indicates a command with missing or malformed
	// parameters.
	ErrInvalidParameters = errors.New("invalid command parameters")

	// ErrDeviceRejected indicates the device answered but refused the
	// command.
	ErrDeviceRejected = errors.New("device rejected command")

	// ErrNotSubscribed indicates an event for a service with no active
	// subscription.
	ErrNotSubscribed = errors.New("no active subscription for service")
)
