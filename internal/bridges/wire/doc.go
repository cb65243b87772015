// Package wire defines the MQTT message types exchanged between the device
// service and the Gray Logic core, plus the sinks that publish canonical
// state onto the bus.
//
// Message shapes follow the platform bridge interface: commands flow in on
// graylogic/command/{protocol}/{id}, acknowledgements flow back on the
// matching ack topic, and every device carries a retained state document on
// graylogic/state/{protocol}/{id} so late subscribers see current state
// without waiting for the next change. Connectivity transitions are published
// separately and retained, carrying a reason code rather than burying the
// cause in free text.
//
// The sinks implement state.Sink over narrow interfaces: MQTTSink publishes
// the retained state document and connectivity transitions, TelemetrySink
// forwards numeric fields to InfluxDB for history, and Fanout composes them
// so the reconciler only ever sees one sink.
package wire
