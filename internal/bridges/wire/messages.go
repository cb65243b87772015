package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MQTT message types for communication between the Gray Logic core and the
// device service. These types implement the bridge interface specification
// (docs/architecture/bridge-interface.md).

// CommandMessage is sent from Core to the service to execute a device command.
// Topic: graylogic/command/{protocol}/{id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name (e.g., "set_volume", "play", "group_join").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"volume": 40} for set_volume
	//   {"master": "10.0.0.9"} for group_join
	//   {"setpoint": 21.5, "zone": "living"} for set_setpoint
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "voice", "scene"
	Source string `json:"source"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was received and sent to the device.
	AckAccepted AckStatus = "accepted"

	// AckQueued indicates the command was received but waiting to send (device busy).
	AckQueued AckStatus = "queued"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the device did not respond within the timeout.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is sent from the service to Core to acknowledge a command.
// Topic: graylogic/ack/{protocol}/{id}
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Status indicates the acknowledgment status.
	Status AckStatus `json:"status"`

	// Protocol is the protocol identifier ("audio" or "climate").
	Protocol string `json:"protocol"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "DEVICE_UNREACHABLE", "INVALID_COMMAND").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Retries is the number of retry attempts made.
	Retries int `json:"retries,omitempty"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeAuthFailed        = "AUTH_FAILED"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is the retained canonical state document for one device.
// Topic: graylogic/state/{protocol}/{id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the state was last updated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State contains the current device state keyed by field name.
	// Structure depends on protocol:
	//   Audio: {"volume": 40, "mute": false, "transport": "play", ...}
	//   Climate: {"temperature": 21.5, "setpoint": 22.0, ...}
	State map[string]any `json:"state"`

	// Protocol is the protocol identifier ("audio" or "climate").
	Protocol string `json:"protocol"`
}

// ConnectivityMessage reports a device's reachability transition.
// Topic: graylogic/connectivity/{protocol}/{id}
// QoS: 1, Retained: Yes
type ConnectivityMessage struct {
	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the transition was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Online is the device's new reachability state.
	Online bool `json:"online"`

	// ReasonCode is a machine-readable cause (e.g., "poll_timeout",
	// "session_auth_failed", "recovered").
	ReasonCode string `json:"reason_code,omitempty"`

	// Message is a human-readable description of the transition.
	Message string `json:"message,omitempty"`

	// Protocol is the protocol identifier ("audio" or "climate").
	Protocol string `json:"protocol"`
}

// Connectivity reason codes.
const (
	ReasonRecovered      = "recovered"
	ReasonPollTimeout    = "poll_timeout"
	ReasonAuthFailed     = "session_auth_failed"
	ReasonSessionExpired = "session_expired"
)

// HealthStatus represents the operational status of the service.
type HealthStatus string

const (
	// HealthHealthy indicates the service is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the service is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy indicates the service is not operating correctly.
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthOffline indicates the service is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the service is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the service is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the service's operational status per protocol.
// Topic: graylogic/health/{protocol}
// QoS: 1, Retained: Yes
// Interval: Every 30 seconds
type HealthMessage struct {
	// Bridge is the protocol identifier (e.g., "audio", "climate").
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the service software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the service has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// DevicesManaged is the number of configured devices.
	DevicesManaged int `json:"devices_managed"`

	// DevicesOnline is the number of devices currently reachable.
	DevicesOnline int `json:"devices_online"`

	// Statistics contains operational metrics.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	// PollsTotal is the total number of poll attempts.
	PollsTotal uint64 `json:"polls_total"`

	// PollFailures is the total number of failed poll attempts.
	PollFailures uint64 `json:"poll_failures"`

	// CommandsProcessed is the total number of commands handled.
	CommandsProcessed uint64 `json:"commands_processed"`

	// PushEvents is the total number of push notifications received.
	PushEvents uint64 `json:"push_events"`
}

// JSON marshalling helpers

// MarshalJSON marshals a CommandMessage to JSON.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewCommandID returns a fresh command correlation identifier.
func NewCommandID() string {
	return uuid.New().String()
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, protocol string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  protocol,
	}
}

// NewAckError creates an acknowledgment with error details. A TIMEOUT code
// yields AckTimeout; everything else yields AckFailed.
func NewAckError(cmd CommandMessage, protocol, code, message string, retries int) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  protocol,
		Error: &AckError{
			Code:    code,
			Message: message,
			Retries: retries,
		},
	}
}

// NewStateMessage creates a retained state document for a device.
func NewStateMessage(deviceID, protocol string, fields map[string]any) StateMessage {
	return StateMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		State:     fields,
		Protocol:  protocol,
	}
}

// NewConnectivityMessage creates a connectivity transition message.
func NewConnectivityMessage(deviceID, protocol string, online bool, reasonCode, message string) ConnectivityMessage {
	return ConnectivityMessage{
		DeviceID:   deviceID,
		Timestamp:  time.Now().UTC(),
		Online:     online,
		ReasonCode: reasonCode,
		Message:    message,
		Protocol:   protocol,
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats BridgeStatistics, managed, online int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		DevicesManaged: managed,
		DevicesOnline:  online,
		Statistics:     &stats,
	}
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// This message is published by the broker if the service disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}
