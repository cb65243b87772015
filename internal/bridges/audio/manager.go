package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-devices/internal/bridges/wire"
	"github.com/nerrad567/gray-logic-devices/internal/group"
	"github.com/nerrad567/gray-logic-devices/internal/health"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/poll"
	"github.com/nerrad567/gray-logic-devices/internal/push"
	"github.com/nerrad567/gray-logic-devices/internal/sched"
	"github.com/nerrad567/gray-logic-devices/internal/state"
	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// Protocol is the protocol identifier used in MQTT topics.
const Protocol = "audio"

// ManagerOptions configures a per-device Manager.
type ManagerOptions struct {
	// Device is this player's configuration. Required.
	Device config.AudioDeviceConfig

	// Client speaks the player API. Required.
	Client *Client

	// Sink receives canonical state changes. Required.
	Sink state.Sink

	// Eventing is the push transport. Nil disables push entirely; the
	// device then runs on polling alone.
	Eventing *Eventing

	// Metrics may be nil.
	Metrics *Metrics

	// Logger may be nil.
	Logger Logger
}

// Manager owns everything one player needs: its scheduler, poller,
// reconciler, push listener, connectivity tracker and group coordinator.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	opts config.AudioDeviceConfig

	client      *Client
	logger      Logger
	metrics     *Metrics
	reconciler  *state.Reconciler
	tracker     *health.Tracker
	scheduler   *sched.Scheduler
	poller      *poll.Poller
	listener    *push.Listener
	coordinator *group.Coordinator
}

// NewManager wires up a Manager for one player.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Device.ID == "" || opts.Device.Host == "" {
		return nil, fmt.Errorf("device id and host are required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	m := &Manager{
		opts:    opts.Device,
		client:  opts.Client,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}

	m.reconciler = state.NewReconciler(opts.Sink)
	m.tracker = health.NewTracker(opts.Device.GetOfflineThreshold(),
		&connectivityNotifier{manager: m, sink: opts.Sink}, opts.Logger)
	m.scheduler = sched.New(opts.Logger)

	poller, err := poll.NewPoller(poll.Options{
		Scheduler:    m.scheduler,
		Fast:         m.fetchPlayerStatus,
		Slow:         m.fetchDeviceStatus,
		FastInterval: opts.Device.GetFastPollInterval(),
		SlowInterval: opts.Device.GetSlowPollInterval(),
		Recorder:     m.tracker,
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating poller: %w", err)
	}
	m.poller = poller

	if opts.Device.PushEnabled && opts.Eventing != nil {
		listener, err := push.NewListener(push.Options{
			Subscriber: opts.Eventing,
			Services:   []string{ServiceRendering, ServiceTransport},
			Decoder:    DecodeEvent,
			Applier:    &pushApplier{manager: m},
			Scheduler:  m.scheduler,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating push listener: %w", err)
		}
		m.listener = listener
		opts.Eventing.SetHandler(listener)
	}

	coordinator, err := group.NewCoordinator(group.Options{
		SelfHost:  opts.Device.Host,
		Transport: opts.Client,
		Source:    m.reconciler,
		Refresher: m.poller,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating group coordinator: %w", err)
	}
	m.coordinator = coordinator

	return m, nil
}

// Start begins polling and, when enabled, push subscriptions.
func (m *Manager) Start(ctx context.Context) {
	m.reconciler.SetIPAddress(m.opts.Host)
	m.poller.Start()
	if m.listener != nil {
		m.listener.Start(ctx)
	}
	m.logInfo("audio device manager started",
		"device_id", m.opts.ID, "host", m.opts.Host, "push", m.listener != nil)
}

// Stop shuts the manager down. Idempotent.
func (m *Manager) Stop() {
	if m.listener != nil {
		m.listener.Stop()
	}
	m.poller.Stop()
	m.scheduler.Stop()
	m.logInfo("audio device manager stopped", "device_id", m.opts.ID)
}

// Snapshot returns the device's current canonical state.
func (m *Manager) Snapshot() state.DeviceState {
	return m.reconciler.Snapshot()
}

// Online reports whether the device is currently considered reachable.
func (m *Manager) Online() bool {
	return m.tracker.Status() == health.StatusOnline
}

// PollStats returns lifetime poll success/failure counts.
func (m *Manager) PollStats() (successes, failures uint64) {
	return m.tracker.Stats()
}

// HandleCommand executes one command from the bus and returns the
// acknowledgement to publish. Device state is refreshed by kicking the
// relevant poll cadence rather than assuming the command took effect.
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
		"device_id", m.opts.ID, "command", cmd.Command, "error", err.Error())
	return wire.NewAckError(cmd, Protocol, ackCode(err), err.Error(), 0)
}

func (m *Manager) dispatch(ctx context.Context, cmd wire.CommandMessage) error {
	host := m.opts.Host

	switch cmd.Command {
	case "set_volume":
		volume, ok := intParam(cmd.Parameters, "volume")
		if !ok {
			return fmt.Errorf("%w: volume", ErrInvalidParameters)
		}
		if err := m.client.SetVolume(ctx, host, volume); err != nil {
			return err
		}

	case "set_mute":
		muted, ok := boolParam(cmd.Parameters, "mute")
		if !ok {
			return fmt.Errorf("%w: mute", ErrInvalidParameters)
		}
		if err := m.client.SetMute(ctx, host, muted); err != nil {
			return err
		}

	case "play", "pause", "stop", "next", "previous":
		if err := m.client.SetTransport(ctx, host, cmd.Command); err != nil {
			return err
		}

	case "set_loop_mode":
		repeat, _ := boolParam(cmd.Parameters, "repeat")
		shuffle, _ := boolParam(cmd.Parameters, "shuffle")
		loopOnce, _ := boolParam(cmd.Parameters, "loop_once")
		code := state.EncodeLoopMode(repeat, shuffle, loopOnce)
		if err := m.client.SetLoopMode(ctx, host, code); err != nil {
			return err
		}

	case "group_volume":
		volume, ok := intParam(cmd.Parameters, "volume")
		if !ok {
			return fmt.Errorf("%w: volume", ErrInvalidParameters)
		}
		if err := m.coordinator.SetGroupVolume(ctx, volume); err != nil {
			return err
		}

	case "group_mute":
		muted, ok := boolParam(cmd.Parameters, "mute")
		if !ok {
			return fmt.Errorf("%w: mute", ErrInvalidParameters)
		}
		if err := m.coordinator.SetGroupMute(ctx, muted); err != nil {
			return err
		}

	case "group_join":
		master, ok := stringParam(cmd.Parameters, "master")
		if !ok {
			return fmt.Errorf("%w: master", ErrInvalidParameters)
		}
		return m.coordinator.Join(ctx, master)

	case "group_leave":
		return m.coordinator.Leave(ctx)

	case "group_ungroup":
		return m.coordinator.Ungroup(ctx)

	case "group_kick":
		slave, ok := stringParam(cmd.Parameters, "slave")
		if !ok {
			return fmt.Errorf("%w: slave", ErrInvalidParameters)
		}
		return m.coordinator.Kick(ctx, slave)

	case "refresh":
		m.poller.TriggerNow()
		m.poller.RefreshNow()
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Command)
	}

	// Confirm the new value from the device instead of trusting the send.
	m.poller.TriggerNow()
	return nil
}

// fetchPlayerStatus is the fast-cadence fetch.
func (m *Manager) fetchPlayerStatus(ctx context.Context) error {
	if m.metrics != nil {
		m.metrics.polls.WithLabelValues(m.opts.ID, "fast").Inc()
	}
	status, err := m.client.GetPlayerStatus(ctx, m.opts.Host)
	if err != nil {
		if m.metrics != nil {
			m.metrics.pollFailures.WithLabelValues(m.opts.ID, "fast").Inc()
		}
		return err
	}
	m.reconciler.ApplyPolledPlayer(status)
	return nil
}

// fetchDeviceStatus is the slow-cadence fetch.
func (m *Manager) fetchDeviceStatus(ctx context.Context) error {
	if m.metrics != nil {
		m.metrics.polls.WithLabelValues(m.opts.ID, "slow").Inc()
	}
	status, err := m.client.GetDeviceStatus(ctx, m.opts.Host)
	if err != nil {
		if m.metrics != nil {
			m.metrics.pollFailures.WithLabelValues(m.opts.ID, "slow").Inc()
		}
		return err
	}
	m.reconciler.ApplyPolledDevice(status)
	return nil
}

// connectivityNotifier forwards tracker transitions to the sink and the
// online gauge.
type connectivityNotifier struct {
	manager *Manager
	sink    state.Sink
}

func (n *connectivityNotifier) ConnectivityChanged(online bool, consecutiveFailures int) {
	m := n.manager
	if m.metrics != nil {
		v := 0.0
		if online {
			v = 1.0
		}
		m.metrics.online.WithLabelValues(m.opts.ID).Set(v)
	}

	if online {
		n.sink.UpdateConnectivity(true, wire.ReasonRecovered, "device reachable")
		return
	}
	n.sink.UpdateConnectivity(false, wire.ReasonPollTimeout,
		fmt.Sprintf("%d consecutive poll failures", consecutiveFailures))
}

// pushApplier forwards decoded push updates to the reconciler and counts
// them.
type pushApplier struct {
	manager *Manager
}

func (a *pushApplier) ApplyPushed(fields state.PushedFields) {
	m := a.manager
	if m.metrics != nil {
		m.metrics.pushEvents.WithLabelValues(m.opts.ID).Inc()
	}
	m.reconciler.ApplyPushed(fields)
}

func (a *pushApplier) SetPushActive(active bool) {
	a.manager.reconciler.SetPushActive(active)
}

// ackCode maps a command failure to its wire error code.
func ackCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return wire.ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidParameters):
		return wire.ErrCodeInvalidParameters
	case errors.Is(err, ErrDeviceRejected):
		return wire.ErrCodeProtocolError
	case errors.Is(err, transport.ErrRateLimited):
		return wire.ErrCodeRateLimited
	case errors.Is(err, transport.ErrTransport):
		return wire.ErrCodeDeviceUnreachable
	case errors.Is(err, context.DeadlineExceeded):
		return wire.ErrCodeTimeout
	default:
		return wire.ErrCodeBridgeError
	}
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		// encoding/json decodes all numbers as float64.
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func boolParam(params map[string]any, key string) (bool, bool) {
	v, ok := params[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
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
