package state

import (
	"sync"
	"testing"
)

// mockSink records state updates keyed by field.
type mockSink struct {
	mu      sync.Mutex
	updates []sinkUpdate
}

type sinkUpdate struct {
	field string
	value interface{}
}

func (m *mockSink) UpdateState(field string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, sinkUpdate{field, value})
}

func (m *mockSink) UpdateConnectivity(online bool, reasonCode, message string) {}

func (m *mockSink) count(field string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.updates {
		if u.field == field {
			n++
		}
	}
	return n
}

func (m *mockSink) last(field string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.updates) - 1; i >= 0; i-- {
		if m.updates[i].field == field {
			return m.updates[i].value, true
		}
	}
	return nil, false
}

func playerStatus() PlayerStatus {
	return PlayerStatus{
		Volume:     35,
		Muted:      false,
		Transport:  "play",
		Title:      "Blue in Green",
		Artist:     "Miles Davis",
		Album:      "Kind of Blue",
		PositionMs: 123456,
		DurationMs: 337000,
		LoopMode:   4,
		Source:     "wifi",
	}
}

func TestApplyPolledPlayer_AllFields(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	r.ApplyPolledPlayer(playerStatus())

	snap := r.Snapshot()
	if snap.Volume != 35 {
		t.Errorf("Volume = %d, want 35", snap.Volume)
	}
	if snap.Transport != "play" {
		t.Errorf("Transport = %q, want play", snap.Transport)
	}
	if snap.Position != 123 {
		t.Errorf("Position = %d, want 123 (ms normalized to s)", snap.Position)
	}
	if snap.Duration != 337 {
		t.Errorf("Duration = %d, want 337", snap.Duration)
	}
	if snap.Repeat || snap.Shuffle || snap.LoopOnce {
		t.Error("loop mode 4 should decode to all-false")
	}

	if got, ok := sink.last(FieldVolume); !ok || got != 35 {
		t.Errorf("sink volume = %v, want 35", got)
	}
}

func TestApplyPolledPlayer_ChangeDetection(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	r.ApplyPolledPlayer(playerStatus())
	first := sink.count(FieldVolume)

	// Identical snapshot: no new notifications for any field.
	r.ApplyPolledPlayer(playerStatus())
	if got := sink.count(FieldVolume); got != first {
		t.Errorf("volume notifications = %d after unchanged poll, want %d", got, first)
	}
	if got := sink.count(FieldTitle); got != 1 {
		t.Errorf("title notifications = %d, want 1", got)
	}

	// Changed volume notifies once more.
	p := playerStatus()
	p.Volume = 50
	r.ApplyPolledPlayer(p)
	if got := sink.count(FieldVolume); got != first+1 {
		t.Errorf("volume notifications = %d after change, want %d", got, first+1)
	}
}

func TestApplyPolledPlayer_PushPrecedence(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	vol := 60
	r.SetPushActive(true)
	r.ApplyPushed(PushedFields{Volume: &vol})

	// Poll reports a different (stale) volume; push-covered fields must
	// keep their pushed values.
	p := playerStatus()
	p.Volume = 35
	p.Transport = "stop"
	r.ApplyPolledPlayer(p)

	snap := r.Snapshot()
	if snap.Volume != 60 {
		t.Errorf("Volume = %d, want pushed 60 over polled 35", snap.Volume)
	}
	if snap.Transport != "" {
		t.Errorf("Transport = %q, want empty (polled transport suppressed)", snap.Transport)
	}

	// Fields without push coverage still update.
	if snap.Title != "Blue in Green" {
		t.Errorf("Title = %q, want polled title applied", snap.Title)
	}
	if snap.Position != 123 {
		t.Errorf("Position = %d, want polled position applied", snap.Position)
	}
}

func TestApplyPolledPlayer_PushInactiveAppliesAll(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	r.SetPushActive(true)
	r.SetPushActive(false)

	r.ApplyPolledPlayer(playerStatus())

	if snap := r.Snapshot(); snap.Volume != 35 || snap.Transport != "play" {
		t.Errorf("polled fields not applied with push inactive: %+v", snap)
	}
}

func TestApplyPushed_AlwaysApplied(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	// Push applies even before SetPushActive(true).
	muted := true
	r.ApplyPushed(PushedFields{Muted: &muted})

	if snap := r.Snapshot(); !snap.Muted {
		t.Error("pushed mute not applied")
	}

	// Nil fields leave state untouched.
	r.ApplyPushed(PushedFields{})
	if snap := r.Snapshot(); !snap.Muted {
		t.Error("empty push cleared state")
	}
}

func TestApplyPolledDevice_IdentityAndTopology(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	r.ApplyPolledDevice(DeviceStatus{
		Name:           "Kitchen",
		MAC:            "AA:BB:CC:DD:EE:FF",
		Firmware:       "4.6.328252",
		UUID:           "uuid-a",
		SignalStrength: -42,
		Role:           RoleMaster,
		SlaveAddresses: []string{"10.0.0.2"},
		GroupName:      "Downstairs",
	})

	snap := r.Snapshot()
	if snap.Role != RoleMaster {
		t.Errorf("Role = %q, want master", snap.Role)
	}
	if snap.MasterAddress != "" {
		t.Errorf("MasterAddress = %q, want empty for master", snap.MasterAddress)
	}
	if len(snap.SlaveAddresses) != 1 || snap.SlaveAddresses[0] != "10.0.0.2" {
		t.Errorf("SlaveAddresses = %v, want [10.0.0.2]", snap.SlaveAddresses)
	}

	if got := sink.count(FieldRole); got != 1 {
		t.Errorf("role notifications = %d, want 1", got)
	}
}

func TestApplyPolledDevice_RoleInvariants(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	// Slave: master address kept, slave list dropped.
	r.ApplyPolledDevice(DeviceStatus{
		UUID:           "uuid-a",
		Role:           RoleSlave,
		MasterAddress:  "10.0.0.1",
		SlaveAddresses: []string{"10.0.0.9"},
	})

	snap := r.Snapshot()
	if snap.MasterAddress != "10.0.0.1" {
		t.Errorf("MasterAddress = %q, want 10.0.0.1", snap.MasterAddress)
	}
	if len(snap.SlaveAddresses) != 0 {
		t.Errorf("SlaveAddresses = %v, want empty for slave", snap.SlaveAddresses)
	}

	// Back to standalone: both cleared.
	r.ApplyPolledDevice(DeviceStatus{UUID: "uuid-a", Role: RoleStandalone})

	snap = r.Snapshot()
	if snap.MasterAddress != "" || len(snap.SlaveAddresses) != 0 {
		t.Errorf("standalone state not cleared: %+v", snap)
	}
}

func TestSnapshot_Independent(t *testing.T) {
	r := NewReconciler(&mockSink{})

	r.ApplyPolledDevice(DeviceStatus{
		UUID:           "uuid-a",
		Role:           RoleMaster,
		SlaveAddresses: []string{"10.0.0.2"},
	})

	snap := r.Snapshot()
	snap.SlaveAddresses[0] = "changed"

	if got := r.Snapshot().SlaveAddresses[0]; got != "10.0.0.2" {
		t.Errorf("Snapshot() not independent: %q", got)
	}
}

func TestSetIPAddress(t *testing.T) {
	sink := &mockSink{}
	r := NewReconciler(sink)

	r.SetIPAddress("10.0.0.5")

	if got := r.Snapshot().IPAddress; got != "10.0.0.5" {
		t.Errorf("IPAddress = %q, want 10.0.0.5", got)
	}
	if got := sink.count(FieldIPAddress); got != 1 {
		t.Errorf("ip notifications = %d, want 1", got)
	}
}

func TestNilSinkSafe(t *testing.T) {
	r := NewReconciler(nil)
	r.ApplyPolledPlayer(playerStatus())
	if got := r.Snapshot().Volume; got != 35 {
		t.Errorf("Volume = %d, want 35", got)
	}
}
