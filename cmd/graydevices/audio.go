package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-devices/internal/bridges/audio"
	"github.com/nerrad567/gray-logic-devices/internal/bridges/wire"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-devices/internal/sched"
	"github.com/nerrad567/gray-logic-devices/internal/state"
	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// commandTimeout bounds one command round-trip, including any session
// recovery the bridge performs on the caller's behalf.
const commandTimeout = 15 * time.Second

// audioBridge owns the per-player managers plus their shared plumbing: the
// event callback listener, the command subscription and the health reporter.
type audioBridge struct {
	cfg        *config.Config
	mqttClient *mqtt.Client
	topics     mqtt.Topics
	log        *logging.Logger

	managers  map[string]*audio.Manager
	callback  *audio.CallbackServer
	scheduler *sched.Scheduler
	started   time.Time
	commands  atomic.Uint64
}

// startAudioBridge wires up and starts the multiroom audio bridge.
//
// Parameters:
//   - ctx: Context governing the managers' background work
//   - cfg: Full application configuration
//   - mqttClient: Connected MQTT client
//   - influxClient: InfluxDB client for telemetry, nil when disabled
//   - registry: Prometheus registry for bridge metrics
//   - log: Application logger
//
// Returns:
//   - *audioBridge: Running bridge; call Stop on shutdown
//   - error: If any device fails to wire up
func startAudioBridge(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, registry prometheus.Registerer, log *logging.Logger,
) (*audioBridge, error) {
	bridge := &audioBridge{
		cfg:        cfg,
		mqttClient: mqttClient,
		log:        log,
		managers:   make(map[string]*audio.Manager, len(cfg.Audio.Devices)),
		scheduler:  sched.New(log),
		started:    time.Now().UTC(),
	}

	metrics := audio.NewMetrics()
	metrics.Register(registry)

	// One callback listener serves every push-enabled player.
	if anyPushEnabled(cfg.Audio.Devices) {
		callback, err := audio.NewCallbackServer(cfg.Audio.EventListen, log)
		if err != nil {
			return nil, fmt.Errorf("creating event callback server: %w", err)
		}
		callback.Start()
		bridge.callback = callback
		log.Info("audio event callback listening", "addr", cfg.Audio.EventListen)
	}

	for _, dev := range cfg.Audio.Devices {
		manager, err := bridge.startDevice(ctx, dev, influxClient, metrics)
		if err != nil {
			return nil, fmt.Errorf("starting audio device %q: %w", dev.ID, err)
		}
		bridge.managers[dev.ID] = manager
	}

	if err := mqttClient.Subscribe(bridge.topics.BridgeCommands(audio.Protocol),
		byte(cfg.MQTT.QoS), bridge.handleCommand); err != nil {
		return nil, fmt.Errorf("subscribing to audio commands: %w", err)
	}

	bridge.scheduler.Every("audio-health", cfg.Audio.GetHealthInterval(), bridge.publishHealth)

	log.Info("audio bridge started", "devices", len(bridge.managers))
	return bridge, nil
}

// startDevice wires up one player: its HTTP client, state sinks, optional
// push transport and manager.
func (b *audioBridge) startDevice(ctx context.Context, dev config.AudioDeviceConfig,
	influxClient *influxdb.Client, metrics *audio.Metrics,
) (*audio.Manager, error) {
	requester, err := transport.NewRequester(transport.Options{
		Timeout: dev.GetRequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating requester: %w", err)
	}

	client, err := audio.NewClient(requester)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	sink, err := b.buildSink(dev.ID, influxClient)
	if err != nil {
		return nil, err
	}

	var eventing *audio.Eventing
	if dev.PushEnabled && b.callback != nil {
		callbackURL := fmt.Sprintf("%s/notify/%s",
			strings.TrimRight(b.cfg.Audio.EventCallbackURL, "/"), dev.ID)
		eventing, err = audio.NewEventing(audio.EventingOptions{
			Host:           dev.Host,
			CallbackURL:    callbackURL,
			RequestTimeout: dev.GetRequestTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("creating eventing transport: %w", err)
		}
		b.callback.Register(dev.ID, eventing)
	}

	manager, err := audio.NewManager(audio.ManagerOptions{
		Device:   dev,
		Client:   client,
		Sink:     sink,
		Eventing: eventing,
		Metrics:  metrics,
		Logger:   b.log.With("device_id", dev.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("creating manager: %w", err)
	}

	manager.Start(ctx)
	return manager, nil
}

// buildSink returns the state sink for one player: the retained MQTT state
// document, fanned out to InfluxDB telemetry when enabled.
func (b *audioBridge) buildSink(deviceID string, influxClient *influxdb.Client) (state.Sink, error) {
	mqttSink, err := wire.NewMQTTSink(wire.MQTTSinkOptions{
		DeviceID:  deviceID,
		Protocol:  audio.Protocol,
		Publisher: b.mqttClient,
		Topics:    b.topics,
		Logger:    b.log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating state sink: %w", err)
	}
	if influxClient == nil {
		return mqttSink, nil
	}

	telemetry, err := wire.NewTelemetrySink(deviceID, influxClient)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry sink: %w", err)
	}
	return wire.Fanout{mqttSink, telemetry}, nil
}

// handleCommand routes one bus command to its device manager and publishes
// the acknowledgement. Malformed payloads are dropped rather than retried.
func (b *audioBridge) handleCommand(topic string, payload []byte) error {
	deviceID := topic[strings.LastIndexByte(topic, '/')+1:]

	var cmd wire.CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.log.Warn("dropping malformed audio command", "topic", topic, "error", err)
		return nil
	}

	var ack wire.AckMessage
	if manager, ok := b.managers[deviceID]; ok {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		ack = manager.HandleCommand(ctx, cmd)
		cancel()
	} else {
		ack = wire.NewAckError(cmd, audio.Protocol, wire.ErrCodeInvalidParameters,
			fmt.Sprintf("unknown device %q", deviceID), 0)
	}
	b.commands.Add(1)

	body, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("marshalling ack: %w", err)
	}
	return b.mqttClient.Publish(b.topics.BridgeAck(audio.Protocol, deviceID),
		body, byte(b.cfg.MQTT.QoS), false)
}

// publishHealth reports the bridge's aggregate health to the bus.
func (b *audioBridge) publishHealth(context.Context) {
	b.publishHealthStatus(b.healthStatus())
}

func (b *audioBridge) healthStatus() wire.HealthStatus {
	managed, online := b.deviceCounts()
	switch {
	case managed == 0 || online == managed:
		return wire.HealthHealthy
	case online == 0:
		return wire.HealthUnhealthy
	default:
		return wire.HealthDegraded
	}
}

func (b *audioBridge) deviceCounts() (managed, online int) {
	managed = len(b.managers)
	for _, manager := range b.managers {
		if manager.Online() {
			online++
		}
	}
	return managed, online
}

func (b *audioBridge) publishHealthStatus(status wire.HealthStatus) {
	var stats wire.BridgeStatistics
	for _, manager := range b.managers {
		successes, failures := manager.PollStats()
		stats.PollsTotal += successes + failures
		stats.PollFailures += failures
	}
	stats.CommandsProcessed = b.commands.Load()

	managed, online := b.deviceCounts()
	msg := wire.NewHealthMessage(audio.Protocol, version, status, stats, managed, online, b.started)

	body, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("marshalling audio health", "error", err)
		return
	}
	if err := b.mqttClient.Publish(b.topics.BridgeHealth(audio.Protocol),
		body, 1, true); err != nil {
		b.log.Warn("publishing audio health", "error", err)
	}
}

// Stop shuts the bridge down: health reporter first, then the managers,
// then the callback listener.
func (b *audioBridge) Stop() {
	b.scheduler.Stop()
	b.publishHealthStatus(wire.HealthStopping)

	for _, manager := range b.managers {
		manager.Stop()
	}

	if b.callback != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.callback.Stop(ctx); err != nil {
			b.log.Warn("stopping event callback server", "error", err)
		}
	}
}

func anyPushEnabled(devices []config.AudioDeviceConfig) bool {
	for _, dev := range devices {
		if dev.PushEnabled {
			return true
		}
	}
	return false
}
