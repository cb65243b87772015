package audio

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the operational metrics shared by every audio device
// manager.
type Metrics struct {
	polls           *prometheus.CounterVec
	pollFailures    *prometheus.CounterVec
	commands        *prometheus.CounterVec
	commandFailures *prometheus.CounterVec
	pushEvents      *prometheus.CounterVec
	online          *prometheus.GaugeVec
}

// NewMetrics creates the audio bridge metrics.
func NewMetrics() *Metrics {
	deviceLabels := []string{"device_id"}
	return &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_audio_polls_total",
			Help: "Poll attempts per device and cadence",
		}, []string{"device_id", "cadence"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_audio_poll_failures_total",
			Help: "Failed poll attempts per device and cadence",
		}, []string{"device_id", "cadence"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_audio_commands_total",
			Help: "Commands handled per device and command name",
		}, []string{"device_id", "command"}),
		commandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_audio_command_failures_total",
			Help: "Failed commands per device and command name",
		}, []string{"device_id", "command"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_audio_push_events_total",
			Help: "Push notifications applied per device",
		}, deviceLabels),
		online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graydevices_audio_device_online",
			Help: "Device reachability (1=online, 0=offline)",
		}, deviceLabels),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.polls,
		m.pollFailures,
		m.commands,
		m.commandFailures,
		m.pushEvents,
		m.online,
	)
}
