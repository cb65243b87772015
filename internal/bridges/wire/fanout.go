package wire

import "github.com/nerrad567/gray-logic-devices/internal/state"

// Fanout delivers every sink notification to each wrapped sink in order.
// The reconciler holds a single sink; Fanout lets MQTT publishing and
// telemetry recording both hang off it.
type Fanout []state.Sink

// UpdateState forwards the change to every sink.
func (f Fanout) UpdateState(field string, value interface{}) {
	for _, s := range f {
		s.UpdateState(field, value)
	}
}

// UpdateConnectivity forwards the transition to every sink.
func (f Fanout) UpdateConnectivity(online bool, reasonCode, message string) {
	for _, s := range f {
		s.UpdateConnectivity(online, reasonCode, message)
	}
}
