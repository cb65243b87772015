package climate

import (
	"context"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-devices/internal/bridges/wire"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/state"
)

// mockSink records sink notifications per zone.
type mockSink struct {
	mu      sync.Mutex
	updates []fieldUpdate
}

type fieldUpdate struct {
	field string
	value interface{}
}

func (m *mockSink) UpdateState(field string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, fieldUpdate{field, value})
}

func (m *mockSink) UpdateConnectivity(online bool, reasonCode, message string) {}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

func (m *mockSink) field(name string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.updates) - 1; i >= 0; i-- {
		if m.updates[i].field == name {
			return m.updates[i].value, true
		}
	}
	return nil, false
}

type sinkRegistry struct {
	mu    sync.Mutex
	sinks map[string]*mockSink
}

func newSinkRegistry() *sinkRegistry {
	return &sinkRegistry{sinks: make(map[string]*mockSink)}
}

func (r *sinkRegistry) factory(zoneID string) state.Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink := &mockSink{}
	r.sinks[zoneID] = sink
	return sink
}

func (r *sinkRegistry) get(zoneID string) *mockSink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sinks[zoneID]
}

func newTestManager(t *testing.T) (*Manager, *fakeCloud, *sinkRegistry) {
	t.Helper()

	client, cloud := newTestClient(t)
	registry := newSinkRegistry()

	manager, err := NewManager(ManagerOptions{
		Account: config.ClimateAccountConfig{
			ID:      "home",
			BaseURL: "unused-here",
		},
		Client:  client,
		SinkFor: registry.factory,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager, cloud, registry
}

func TestManager_FetchZonesLogsInAutomatically(t *testing.T) {
	manager, cloud, registry := newTestManager(t)

	// No explicit login: the session policy recovers from logged-out.
	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() error = %v", err)
	}

	cloud.mu.Lock()
	attempts := cloud.loginAttempts
	cloud.mu.Unlock()
	if attempts != 1 {
		t.Errorf("login attempts = %d, want 1", attempts)
	}

	if manager.ZoneCount() != 2 {
		t.Fatalf("ZoneCount() = %d, want 2", manager.ZoneCount())
	}

	living := registry.get("living")
	if living == nil {
		t.Fatal("no sink created for living zone")
	}
	if v, ok := living.field(state.FieldClimateTemp); !ok || v != 21.5 {
		t.Errorf("temperature = %v (%v), want 21.5", v, ok)
	}
	if v, ok := living.field(state.FieldClimateSet); !ok || v != 22.0 {
		t.Errorf("setpoint = %v (%v), want 22.0", v, ok)
	}
}

func TestManager_UnchangedZonesPublishNothing(t *testing.T) {
	manager, _, registry := newTestManager(t)

	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() error = %v", err)
	}
	before := registry.get("living").count()

	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() second error = %v", err)
	}

	if after := registry.get("living").count(); after != before {
		t.Errorf("updates = %d after identical poll, want %d", after, before)
	}
}

func TestManager_RecoversFromMidSessionExpiry(t *testing.T) {
	manager, cloud, _ := newTestManager(t)

	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() error = %v", err)
	}

	cloud.mu.Lock()
	cloud.expireSession = true
	cloud.mu.Unlock()

	// The expired session costs one re-login and one retry, invisible to
	// the caller.
	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() after expiry error = %v", err)
	}

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	if cloud.loginAttempts != 2 {
		t.Errorf("login attempts = %d, want 2 (initial + recovery)", cloud.loginAttempts)
	}
}

func TestManager_HandleCommandSetSetpoint(t *testing.T) {
	manager, cloud, _ := newTestManager(t)

	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() error = %v", err)
	}

	ack := manager.HandleCommand(context.Background(), wire.CommandMessage{
		ID:      wire.NewCommandID(),
		Command: "set_setpoint",
		Parameters: map[string]any{
			"zone":     "living",
			"setpoint": 21.5,
		},
	})

	if ack.Status != wire.AckAccepted {
		t.Fatalf("ack = %+v, want accepted", ack)
	}

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	if cloud.setpoints["living"] != 21.5 {
		t.Errorf("setpoint = %v, want 21.5", cloud.setpoints["living"])
	}
}

func TestManager_HandleCommandUnknownZone(t *testing.T) {
	manager, _, _ := newTestManager(t)

	ack := manager.HandleCommand(context.Background(), wire.CommandMessage{
		ID:      wire.NewCommandID(),
		Command: "set_setpoint",
		Parameters: map[string]any{
			"zone":     "attic",
			"setpoint": 21.5,
		},
	})

	if ack.Status != wire.AckFailed {
		t.Fatalf("ack = %+v, want failed", ack)
	}
	if ack.Error == nil || ack.Error.Code != wire.ErrCodeInvalidParameters {
		t.Errorf("error = %+v, want INVALID_PARAMETERS", ack.Error)
	}
}

func TestManager_HandleCommandUnknown(t *testing.T) {
	manager, _, _ := newTestManager(t)

	ack := manager.HandleCommand(context.Background(), wire.CommandMessage{
		ID:      wire.NewCommandID(),
		Command: "defrost",
	})

	if ack.Status != wire.AckFailed {
		t.Fatalf("ack = %+v, want failed", ack)
	}
	if ack.Error == nil || ack.Error.Code != wire.ErrCodeInvalidCommand {
		t.Errorf("error = %+v, want INVALID_COMMAND", ack.Error)
	}
}

func TestManager_HandleCommandAuthFailure(t *testing.T) {
	manager, cloud, _ := newTestManager(t)

	if err := manager.fetchZones(context.Background()); err != nil {
		t.Fatalf("fetchZones() error = %v", err)
	}

	cloud.mu.Lock()
	cloud.sessionValid = false
	cloud.rejectLogin = true
	cloud.mu.Unlock()

	ack := manager.HandleCommand(context.Background(), wire.CommandMessage{
		ID:      wire.NewCommandID(),
		Command: "set_setpoint",
		Parameters: map[string]any{
			"zone":     "living",
			"setpoint": 19.0,
		},
	})

	if ack.Status != wire.AckFailed {
		t.Fatalf("ack = %+v, want failed", ack)
	}
	if ack.Error == nil || ack.Error.Code != wire.ErrCodeAuthFailed {
		t.Errorf("error = %+v, want AUTH_FAILED", ack.Error)
	}
}

func TestNewManager_Validation(t *testing.T) {
	client, _ := newTestClient(t)
	registry := newSinkRegistry()
	account := config.ClimateAccountConfig{ID: "home"}

	if _, err := NewManager(ManagerOptions{Client: client, SinkFor: registry.factory}); err == nil {
		t.Error("NewManager() expected error for missing account id")
	}
	if _, err := NewManager(ManagerOptions{Account: account, SinkFor: registry.factory}); err == nil {
		t.Error("NewManager() expected error for nil client")
	}
	if _, err := NewManager(ManagerOptions{Account: account, Client: client}); err == nil {
		t.Error("NewManager() expected error for nil sink factory")
	}
}
