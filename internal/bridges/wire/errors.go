package wire

import "errors"

// Sentinel errors for sink construction.
var (
	// ErrDeviceIDRequired indicates no device identifier was provided.
	ErrDeviceIDRequired = errors.New("device id is required")

	// ErrProtocolRequired indicates no protocol identifier was provided.
	ErrProtocolRequired = errors.New("protocol is required")

	// ErrPublisherRequired indicates no MQTT publisher was provided.
	ErrPublisherRequired = errors.New("publisher is required")

	// ErrTopicsRequired indicates no topic builder was provided.
	ErrTopicsRequired = errors.New("topic builder is required")

	// ErrWriterRequired indicates no metric writer was provided.
	ErrWriterRequired = errors.New("metric writer is required")
)
