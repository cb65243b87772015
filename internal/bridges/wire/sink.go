package wire

import (
	"encoding/json"
	"sync"
)

// Publisher sends payloads to the MQTT broker.
// Implemented by mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// TopicBuilder builds the state and connectivity topics for a device.
// Implemented by mqtt.Topics.
type TopicBuilder interface {
	BridgeState(protocol, id string) string
	BridgeConnectivity(protocol, id string) string
}

// Logger defines the logging interface used by sinks.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// MQTTSink publishes a device's canonical state onto the Gray Logic bus.
//
// Each field change re-publishes the full retained state document so late
// subscribers always see current state without waiting for the next change.
// Connectivity transitions go to a separate retained topic with a reason
// code.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type MQTTSink struct {
	deviceID  string
	protocol  string
	publisher Publisher
	topics    TopicBuilder
	logger    Logger

	mu     sync.Mutex
	fields map[string]any
}

// MQTTSinkOptions configures an MQTTSink.
type MQTTSinkOptions struct {
	// DeviceID is the Gray Logic device identifier. Required.
	DeviceID string

	// Protocol is the protocol identifier ("audio" or "climate"). Required.
	Protocol string

	// Publisher sends messages to the broker. Required.
	Publisher Publisher

	// Topics builds topic strings. Required.
	Topics TopicBuilder

	// Logger may be nil.
	Logger Logger
}

// NewMQTTSink creates an MQTTSink.
func NewMQTTSink(opts MQTTSinkOptions) (*MQTTSink, error) {
	if opts.DeviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if opts.Protocol == "" {
		return nil, ErrProtocolRequired
	}
	if opts.Publisher == nil {
		return nil, ErrPublisherRequired
	}
	if opts.Topics == nil {
		return nil, ErrTopicsRequired
	}
	return &MQTTSink{
		deviceID:  opts.DeviceID,
		protocol:  opts.Protocol,
		publisher: opts.Publisher,
		topics:    opts.Topics,
		logger:    opts.Logger,
		fields:    make(map[string]any),
	}, nil
}

// UpdateState merges the changed field into the state document and publishes
// it retained at QoS 1.
func (s *MQTTSink) UpdateState(field string, value interface{}) {
	s.mu.Lock()
	s.fields[field] = value
	doc := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		doc[k] = v
	}
	s.mu.Unlock()

	msg := NewStateMessage(s.deviceID, s.protocol, doc)
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logWarn("marshal state message failed", "device_id", s.deviceID, "error", err.Error())
		return
	}

	topic := s.topics.BridgeState(s.protocol, s.deviceID)
	if err := s.publisher.Publish(topic, payload, 1, true); err != nil {
		s.logWarn("publish state failed",
			"device_id", s.deviceID, "topic", topic, "error", err.Error())
		return
	}
	s.logDebug("state published", "device_id", s.deviceID, "field", field)
}

// UpdateConnectivity publishes a retained connectivity transition.
func (s *MQTTSink) UpdateConnectivity(online bool, reasonCode, message string) {
	msg := NewConnectivityMessage(s.deviceID, s.protocol, online, reasonCode, message)
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logWarn("marshal connectivity message failed", "device_id", s.deviceID, "error", err.Error())
		return
	}

	topic := s.topics.BridgeConnectivity(s.protocol, s.deviceID)
	if err := s.publisher.Publish(topic, payload, 1, true); err != nil {
		s.logWarn("publish connectivity failed",
			"device_id", s.deviceID, "topic", topic, "error", err.Error())
	}
}

func (s *MQTTSink) logDebug(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *MQTTSink) logWarn(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}
