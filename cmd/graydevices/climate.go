package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-devices/internal/bridges/climate"
	"github.com/nerrad567/gray-logic-devices/internal/bridges/wire"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-devices/internal/sched"
	"github.com/nerrad567/gray-logic-devices/internal/state"
	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// climateBridge owns the per-account managers plus the command subscription
// and health reporter they share.
//
// Commands are addressed to the account; the target zone travels in the
// command parameters. Zone state publishes under the device identifier
// "{account}-{zone}" so each zone appears as its own device on the bus.
type climateBridge struct {
	cfg        *config.Config
	mqttClient *mqtt.Client
	topics     mqtt.Topics
	log        *logging.Logger

	managers  map[string]*climate.Manager
	scheduler *sched.Scheduler
	started   time.Time
	commands  atomic.Uint64
}

// startClimateBridge wires up and starts the cloud climate bridge.
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
//   - *climateBridge: Running bridge; call Stop on shutdown
//   - error: If any account fails to wire up
func startClimateBridge(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, registry prometheus.Registerer, log *logging.Logger,
) (*climateBridge, error) {
	bridge := &climateBridge{
		cfg:        cfg,
		mqttClient: mqttClient,
		log:        log,
		managers:   make(map[string]*climate.Manager, len(cfg.Climate.Accounts)),
		scheduler:  sched.New(log),
		started:    time.Now().UTC(),
	}

	metrics := climate.NewMetrics()
	metrics.Register(registry)

	for _, account := range cfg.Climate.Accounts {
		manager, err := bridge.startAccount(ctx, account, influxClient, metrics)
		if err != nil {
			return nil, fmt.Errorf("starting climate account %q: %w", account.ID, err)
		}
		bridge.managers[account.ID] = manager
	}

	if err := mqttClient.Subscribe(bridge.topics.BridgeCommands(climate.Protocol),
		byte(cfg.MQTT.QoS), bridge.handleCommand); err != nil {
		return nil, fmt.Errorf("subscribing to climate commands: %w", err)
	}

	bridge.scheduler.Every("climate-health", cfg.Climate.GetHealthInterval(), bridge.publishHealth)

	log.Info("climate bridge started", "accounts", len(bridge.managers))
	return bridge, nil
}

// startAccount wires up one cloud account: its cookie-carrying HTTP client,
// zone sink factory and manager.
func (b *climateBridge) startAccount(ctx context.Context, account config.ClimateAccountConfig,
	influxClient *influxdb.Client, metrics *climate.Metrics,
) (*climate.Manager, error) {
	// The cloud session lives in cookies, so this requester must keep a jar.
	requester, err := transport.NewRequester(transport.Options{
		Timeout:     account.GetRequestTimeout(),
		WithCookies: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating requester: %w", err)
	}

	client, err := climate.NewClient(climate.ClientOptions{
		BaseURL:   account.BaseURL,
		Username:  account.Username,
		Password:  account.Password,
		Requester: requester,
	})
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	manager, err := climate.NewManager(climate.ManagerOptions{
		Account: account,
		Client:  client,
		SinkFor: b.zoneSinkFactory(account.ID, influxClient),
		Metrics: metrics,
		Logger:  b.log.With("account_id", account.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("creating manager: %w", err)
	}

	manager.Start(ctx)
	return manager, nil
}

// zoneSinkFactory builds per-zone sinks on demand. Zones only become known
// when the first poll reports them, so sinks cannot be created up front.
func (b *climateBridge) zoneSinkFactory(accountID string, influxClient *influxdb.Client) climate.SinkFactory {
	return func(zoneID string) state.Sink {
		deviceID := accountID + "-" + zoneID

		mqttSink, err := wire.NewMQTTSink(wire.MQTTSinkOptions{
			DeviceID:  deviceID,
			Protocol:  climate.Protocol,
			Publisher: b.mqttClient,
			Topics:    b.topics,
			Logger:    b.log,
		})
		if err != nil {
			b.log.Error("creating zone sink", "device_id", deviceID, "error", err)
			return wire.Fanout{}
		}
		if influxClient == nil {
			return mqttSink
		}

		telemetry, err := wire.NewTelemetrySink(deviceID, influxClient)
		if err != nil {
			b.log.Error("creating zone telemetry sink", "device_id", deviceID, "error", err)
			return mqttSink
		}
		return wire.Fanout{mqttSink, telemetry}
	}
}

// handleCommand routes one bus command to its account manager and publishes
// the acknowledgement. Malformed payloads are dropped rather than retried.
func (b *climateBridge) handleCommand(topic string, payload []byte) error {
	accountID := topic[strings.LastIndexByte(topic, '/')+1:]

	var cmd wire.CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.log.Warn("dropping malformed climate command", "topic", topic, "error", err)
		return nil
	}

	var ack wire.AckMessage
	if manager, ok := b.managers[accountID]; ok {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		ack = manager.HandleCommand(ctx, cmd)
		cancel()
	} else {
		ack = wire.NewAckError(cmd, climate.Protocol, wire.ErrCodeInvalidParameters,
			fmt.Sprintf("unknown account %q", accountID), 0)
	}
	b.commands.Add(1)

	body, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("marshalling ack: %w", err)
	}
	return b.mqttClient.Publish(b.topics.BridgeAck(climate.Protocol, accountID),
		body, byte(b.cfg.MQTT.QoS), false)
}

// publishHealth reports the bridge's aggregate health to the bus.
func (b *climateBridge) publishHealth(context.Context) {
	b.publishHealthStatus(b.healthStatus())
}

func (b *climateBridge) healthStatus() wire.HealthStatus {
	accounts, online := b.accountCounts()
	switch {
	case accounts == 0 || online == accounts:
		return wire.HealthHealthy
	case online == 0:
		return wire.HealthUnhealthy
	default:
		return wire.HealthDegraded
	}
}

func (b *climateBridge) accountCounts() (accounts, online int) {
	accounts = len(b.managers)
	for _, manager := range b.managers {
		if manager.Online() {
			online++
		}
	}
	return accounts, online
}

func (b *climateBridge) publishHealthStatus(status wire.HealthStatus) {
	var stats wire.BridgeStatistics
	managed, online := 0, 0
	for _, manager := range b.managers {
		successes, failures := manager.PollStats()
		stats.PollsTotal += successes + failures
		stats.PollFailures += failures

		zones := manager.ZoneCount()
		managed += zones
		if manager.Online() {
			online += zones
		}
	}
	stats.CommandsProcessed = b.commands.Load()

	msg := wire.NewHealthMessage(climate.Protocol, version, status, stats, managed, online, b.started)

	body, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("marshalling climate health", "error", err)
		return
	}
	if err := b.mqttClient.Publish(b.topics.BridgeHealth(climate.Protocol),
		body, 1, true); err != nil {
		b.log.Warn("publishing climate health", "error", err)
	}
}

// Stop shuts the bridge down: health reporter first, then the account
// managers with their sessions.
func (b *climateBridge) Stop() {
	b.scheduler.Stop()
	b.publishHealthStatus(wire.HealthStopping)

	for _, manager := range b.managers {
		manager.Stop()
	}
}
