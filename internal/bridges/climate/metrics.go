package climate

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the operational and zone metrics shared by every climate
// account manager.
type Metrics struct {
	temperature  *prometheus.GaugeVec
	setpoint     *prometheus.GaugeVec
	heatingPower *prometheus.GaugeVec
	powerOn      *prometheus.GaugeVec

	polls           *prometheus.CounterVec
	pollFailures    *prometheus.CounterVec
	commands        *prometheus.CounterVec
	commandFailures *prometheus.CounterVec
}

// NewMetrics creates the climate bridge metrics.
func NewMetrics() *Metrics {
	zoneLabels := []string{"account_id", "zone_id", "zone_name"}
	accountLabels := []string{"account_id"}
	return &Metrics{
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graydevices_climate_temperature_celsius",
			Help: "Current temperature per zone",
		}, zoneLabels),
		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graydevices_climate_setpoint_celsius",
			Help: "Target temperature per zone",
		}, zoneLabels),
		heatingPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graydevices_climate_heating_power_percent",
			Help: "Heating power demand per zone",
		}, zoneLabels),
		powerOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graydevices_climate_power_on_bool",
			Help: "Power setting per zone (1=on, 0=off)",
		}, zoneLabels),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_climate_polls_total",
			Help: "Zone poll attempts per account",
		}, accountLabels),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_climate_poll_failures_total",
			Help: "Failed zone poll attempts per account",
		}, accountLabels),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_climate_commands_total",
			Help: "Commands handled per account and command name",
		}, []string{"account_id", "command"}),
		commandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graydevices_climate_command_failures_total",
			Help: "Failed commands per account and command name",
		}, []string{"account_id", "command"}),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.temperature,
		m.setpoint,
		m.heatingPower,
		m.powerOn,
		m.polls,
		m.pollFailures,
		m.commands,
		m.commandFailures,
	)
}
