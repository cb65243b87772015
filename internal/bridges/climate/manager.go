package climate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-devices/internal/bridges/wire"
	"github.com/nerrad567/gray-logic-devices/internal/health"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/poll"
	"github.com/nerrad567/gray-logic-devices/internal/sched"
	"github.com/nerrad567/gray-logic-devices/internal/session"
	"github.com/nerrad567/gray-logic-devices/internal/state"
	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// Protocol is the protocol identifier used in MQTT topics.
const Protocol = "climate"

// Logger defines the logging interface used by the climate bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SinkFactory returns the state sink for one zone's device. Called once per
// zone the account reports, the first time the zone appears.
type SinkFactory func(zoneID string) state.Sink

// ManagerOptions configures a per-account Manager.
type ManagerOptions struct {
	// Account is this cloud account's configuration. Required.
	Account config.ClimateAccountConfig

	// Client speaks the cloud API. Required.
	Client *Client

	// SinkFor creates per-zone sinks. Required.
	SinkFor SinkFactory

	// Metrics may be nil.
	Metrics *Metrics

	// Logger may be nil.
	Logger Logger
}

// zoneEntry is one zone's sink plus its last published snapshot, kept so
// unchanged fields publish nothing.
type zoneEntry struct {
	sink state.Sink
	last Zone
	seen bool
}

// Manager owns one cloud account: its session, scheduler, zone poller and
// connectivity tracker.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	opts    config.ClimateAccountConfig
	client  *Client
	sinkFor SinkFactory
	metrics *Metrics
	logger  Logger

	session   *session.Manager
	scheduler *sched.Scheduler
	poller    *poll.Poller
	tracker   *health.Tracker

	mu    sync.Mutex
	zones map[string]*zoneEntry
}

// NewManager wires up a Manager for one account.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Account.ID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if opts.SinkFor == nil {
		return nil, fmt.Errorf("sink factory is required")
	}

	m := &Manager{
		opts:    opts.Account,
		client:  opts.Client,
		sinkFor: opts.SinkFor,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		zones:   make(map[string]*zoneEntry),
	}

	sess, err := session.NewManager(opts.Client, opts.Account.GetSessionTimeout(), opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating session manager: %w", err)
	}
	m.session = sess

	m.scheduler = sched.New(opts.Logger)
	m.tracker = health.NewTracker(opts.Account.GetOfflineThreshold(),
		&accountNotifier{manager: m}, opts.Logger)

	// Zone data moves on the slow cadence only; the cloud throttles
	// aggressive clients, so there is no fast cadence to enable.
	poller, err := poll.NewPoller(poll.Options{
		Scheduler:    m.scheduler,
		Slow:         m.fetchZones,
		SlowInterval: opts.Account.GetPollInterval(),
		Recorder:     m.tracker,
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating poller: %w", err)
	}
	m.poller = poller

	return m, nil
}

// Start begins polling and the background keepalive.
func (m *Manager) Start(ctx context.Context) {
	m.poller.Start()
	m.scheduler.Every("session-keepalive", m.opts.GetKeepaliveInterval(),
		m.session.BackgroundKeepalive)
	// Prime the session and the first zone snapshot without waiting for
	// the first tick.
	m.poller.RefreshNow()

	m.logInfo("climate account manager started", "account_id", m.opts.ID)
}

// Stop shuts the manager down. Idempotent.
func (m *Manager) Stop() {
	m.poller.Stop()
	m.scheduler.Stop()
	m.session.Close()
	m.logInfo("climate account manager stopped", "account_id", m.opts.ID)
}

// SessionState returns the account session's lifecycle state.
func (m *Manager) SessionState() session.State {
	return m.session.State()
}

// Online reports whether the account is currently considered reachable.
func (m *Manager) Online() bool {
	return m.tracker.Status() == health.StatusOnline
}

// ZoneCount returns the number of zones seen so far.
func (m *Manager) ZoneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.zones)
}

// PollStats returns lifetime poll success/failure counts.
func (m *Manager) PollStats() (successes, failures uint64) {
	return m.tracker.Stats()
}

// HandleCommand executes one command from the bus and returns the
// acknowledgement to publish. All device-bound work runs under the session
// recovery policy.
func (m *Manager) HandleCommand(ctx context.Context, cmd wire.CommandMessage) wire.AckMessage {
	if m.metrics != nil {
		m.metrics.commands.WithLabelValues(m.opts.ID, cmd.Command).Inc()
	}

	err := m.dispatch(ctx, cmd)
	if err == nil {
		return wire.NewAckMessage(cmd, wire.AckAccepted, Protocol)
	}

	if m.metrics != nil {
		m.metrics.commandFailures.WithLabelValues(m.opts.ID, cmd.Command).Inc()
	}
	m.logWarn("command failed",
		"account_id", m.opts.ID, "command", cmd.Command, "error", err.Error())
	return wire.NewAckError(cmd, Protocol, ackCode(err), err.Error(), 0)
}

func (m *Manager) dispatch(ctx context.Context, cmd wire.CommandMessage) error {
	switch cmd.Command {
	case "set_setpoint":
		zoneID, ok := stringParam(cmd.Parameters, "zone")
		if !ok {
			return fmt.Errorf("%w: zone", ErrInvalidParameters)
		}
		setpoint, ok := floatParam(cmd.Parameters, "setpoint")
		if !ok {
			return fmt.Errorf("%w: setpoint", ErrInvalidParameters)
		}
		if !m.knowsZone(zoneID) {
			return fmt.Errorf("%w: %s", ErrUnknownZone, zoneID)
		}
		err := m.session.ExecuteWithRetry(ctx, func(ctx context.Context) error {
			return m.client.SetSetpoint(ctx, zoneID, setpoint)
		})
		if err != nil {
			return err
		}

	case "set_mode":
		zoneID, ok := stringParam(cmd.Parameters, "zone")
		if !ok {
			return fmt.Errorf("%w: zone", ErrInvalidParameters)
		}
		mode, ok := stringParam(cmd.Parameters, "mode")
		if !ok {
			return fmt.Errorf("%w: mode", ErrInvalidParameters)
		}
		if !m.knowsZone(zoneID) {
			return fmt.Errorf("%w: %s", ErrUnknownZone, zoneID)
		}
		err := m.session.ExecuteWithRetry(ctx, func(ctx context.Context) error {
			return m.client.SetMode(ctx, zoneID, mode)
		})
		if err != nil {
			return err
		}

	case "refresh":
		m.poller.RefreshNow()
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Command)
	}

	// Confirm the new value from the cloud instead of trusting the send.
	m.poller.RefreshNow()
	return nil
}

// fetchZones is the slow-cadence fetch: list zones under the session policy
// and publish per-zone diffs.
func (m *Manager) fetchZones(ctx context.Context) error {
	if m.metrics != nil {
		m.metrics.polls.WithLabelValues(m.opts.ID).Inc()
	}

	var zones []Zone
	err := m.session.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		var zerr error
		zones, zerr = m.client.Zones(ctx)
		return zerr
	})
	if err != nil {
		if m.metrics != nil {
			m.metrics.pollFailures.WithLabelValues(m.opts.ID).Inc()
		}
		return err
	}

	m.applyZones(zones)
	return nil
}

// applyZones diffs each reported zone against its last snapshot and emits
// only changed fields.
func (m *Manager) applyZones(zones []Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, zone := range zones {
		entry, ok := m.zones[zone.ID]
		if !ok {
			entry = &zoneEntry{sink: m.sinkFor(zone.ID)}
			m.zones[zone.ID] = entry
			m.logInfo("zone discovered",
				"account_id", m.opts.ID, "zone_id", zone.ID, "zone_name", zone.Name)
		}

		m.publishZoneDiff(entry, zone)
		entry.last = zone
		entry.seen = true

		if m.metrics != nil {
			labels := []string{m.opts.ID, zone.ID, zone.Name}
			m.metrics.temperature.WithLabelValues(labels...).Set(zone.Temperature)
			m.metrics.setpoint.WithLabelValues(labels...).Set(zone.Setpoint)
			m.metrics.heatingPower.WithLabelValues(labels...).Set(zone.HeatingPower)
			power := 0.0
			if zone.PowerOn {
				power = 1.0
			}
			m.metrics.powerOn.WithLabelValues(labels...).Set(power)
		}
	}
}

func (m *Manager) publishZoneDiff(entry *zoneEntry, zone Zone) {
	first := !entry.seen
	last := entry.last

	if first || zone.Name != last.Name {
		entry.sink.UpdateState(state.FieldName, zone.Name)
	}
	if first || zone.Temperature != last.Temperature {
		entry.sink.UpdateState(state.FieldClimateTemp, zone.Temperature)
	}
	if first || zone.Setpoint != last.Setpoint {
		entry.sink.UpdateState(state.FieldClimateSet, zone.Setpoint)
	}
	if first || zone.Mode != last.Mode {
		entry.sink.UpdateState(state.FieldClimateMode, zone.Mode)
	}
	if first || zone.HeatingPower != last.HeatingPower {
		entry.sink.UpdateState(state.FieldClimatePower, zone.HeatingPower)
	}
}

func (m *Manager) knowsZone(zoneID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.zones[zoneID]
	return ok
}

// accountNotifier broadcasts account reachability to every zone's sink: when
// the cloud is unreachable, every zone it backs goes offline together.
type accountNotifier struct {
	manager *Manager
}

func (n *accountNotifier) ConnectivityChanged(online bool, consecutiveFailures int) {
	m := n.manager

	m.mu.Lock()
	sinks := make([]state.Sink, 0, len(m.zones))
	for _, entry := range m.zones {
		sinks = append(sinks, entry.sink)
	}
	m.mu.Unlock()

	reason := wire.ReasonRecovered
	message := "account reachable"
	if !online {
		reason = wire.ReasonPollTimeout
		message = fmt.Sprintf("%d consecutive poll failures", consecutiveFailures)
	}
	for _, sink := range sinks {
		sink.UpdateConnectivity(online, reason, message)
	}
}

// ackCode maps a command failure to its wire error code.
func ackCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return wire.ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidParameters), errors.Is(err, ErrUnknownZone):
		return wire.ErrCodeInvalidParameters
	case errors.Is(err, transport.ErrAuth), errors.Is(err, transport.ErrSessionExpired):
		return wire.ErrCodeAuthFailed
	case errors.Is(err, transport.ErrRateLimited):
		return wire.ErrCodeRateLimited
	case errors.Is(err, transport.ErrInvalidResponse):
		return wire.ErrCodeProtocolError
	case errors.Is(err, transport.ErrTransport):
		return wire.ErrCodeDeviceUnreachable
	case errors.Is(err, context.DeadlineExceeded):
		return wire.ErrCodeTimeout
	default:
		return wire.ErrCodeBridgeError
	}
}

func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func (m *Manager) logInfo(msg string, keysAndValues ...interface{}) {
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *Manager) logWarn(msg string, keysAndValues ...interface{}) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}
