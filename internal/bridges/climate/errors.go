package climate

import "errors"

// Sentinel errors for the climate bridge.
var (
	// ErrUnknownCommand indicates a command name the bridge does not handle.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidParameters indicates a command with missing or malformed
	// parameters.
	ErrInvalidParameters = errors.New("invalid command parameters")

	// ErrUnknownZone indicates a command addressed to a zone the account
	// does not report.
	ErrUnknownZone = errors.New("unknown zone")
)
