package wire

// MetricWriter records a single device measurement.
// Implemented by influxdb.Client.
type MetricWriter interface {
	WriteDeviceMetric(deviceID string, measurement string, value float64)
}

// TelemetrySink forwards numeric state fields to InfluxDB for history.
//
// Only numeric values are recorded; string and slice fields have no sensible
// time-series representation and are dropped silently. Connectivity
// transitions are recorded as an "online" gauge (1 or 0) so outages can be
// graphed alongside the device's other series.
type TelemetrySink struct {
	deviceID string
	writer   MetricWriter
}

// NewTelemetrySink creates a TelemetrySink.
func NewTelemetrySink(deviceID string, writer MetricWriter) (*TelemetrySink, error) {
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}
	return &TelemetrySink{deviceID: deviceID, writer: writer}, nil
}

// UpdateState records numeric field changes as device metrics.
func (s *TelemetrySink) UpdateState(field string, value interface{}) {
	v, ok := asFloat(value)
	if !ok {
		return
	}
	s.writer.WriteDeviceMetric(s.deviceID, field, v)
}

// UpdateConnectivity records the transition as an online gauge.
func (s *TelemetrySink) UpdateConnectivity(online bool, reasonCode, message string) {
	v := 0.0
	if online {
		v = 1.0
	}
	s.writer.WriteDeviceMetric(s.deviceID, "online", v)
}

// asFloat converts the numeric types the reconciler emits. Booleans map to
// 1/0 so mute and shuffle can be graphed.
func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
