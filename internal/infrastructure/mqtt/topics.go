package mqtt

import "fmt"

// Topic prefixes per the Gray Logic MQTT specification.
//
// All bridge topics use the flat scheme: graylogic/{category}/{protocol}/{id}
// This matches the platform core's runtime subscribers.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	// Flat scheme: graylogic/{category}/{protocol}/{id}
	TopicPrefixBridge = "graylogic"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for Gray Logic MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("audio", "speaker-kitchen")
//	// Returns: "graylogic/state/audio/speaker-kitchen"
type Topics struct{}

// BridgeState returns the topic for device state updates from a bridge.
//
// Example: graylogic/state/audio/speaker-kitchen
func (Topics) BridgeState(protocol, id string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, id)
}

// BridgeConnectivity returns the topic for device connectivity transitions.
//
// Example: graylogic/connectivity/audio/speaker-kitchen
func (Topics) BridgeConnectivity(protocol, id string) string {
	return fmt.Sprintf("%s/connectivity/%s/%s", TopicPrefixBridge, protocol, id)
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: graylogic/command/audio/speaker-kitchen
func (Topics) BridgeCommand(protocol, id string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, id)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: graylogic/ack/audio/speaker-kitchen
func (Topics) BridgeAck(protocol, id string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, id)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/audio
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeTelemetry returns the topic for playback telemetry from a bridge.
//
// Example: graylogic/telemetry/audio/speaker-kitchen
func (Topics) BridgeTelemetry(protocol, id string) string {
	return fmt.Sprintf("%s/telemetry/%s/%s", TopicPrefixBridge, protocol, id)
}

// SystemStatus returns the service status topic used for the Last Will
// and Testament and the online announcement.
//
// Example: graylogic/system/devices/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/devices/status", TopicPrefixSystem)
}

// BridgeCommands returns a pattern matching all commands for one protocol.
//
// Pattern: graylogic/command/audio/+
func (Topics) BridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, protocol)
}

// AllBridgeCommands returns a pattern matching all commands to bridges.
//
// Pattern: graylogic/command/+/+
func (Topics) AllBridgeCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefixBridge)
}

// AllBridgeStates returns a pattern matching all bridge state updates.
//
// Pattern: graylogic/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllBridgeHealth returns a pattern matching all bridge health updates.
//
// Pattern: graylogic/health/+
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefixBridge)
}

// AllTopics returns a pattern matching all Gray Logic topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: graylogic/#
func (Topics) AllTopics() string {
	return "graylogic/#"
}
