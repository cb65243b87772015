package state

import "sync"

// Reconciler is the single writer of one device's DeviceState.
//
// It merges polled snapshots and pushed partial updates under a precedence
// rule (push wins for push-covered fields while the push channel is active)
// and emits per-field sink notifications only when a value changes.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Mutation is serialized under one lock; poll and push updates never
//     race on the same field.
type Reconciler struct {
	sink Sink

	mu         sync.Mutex
	state      DeviceState
	pushActive bool
}

// NewReconciler creates a Reconciler writing to the given sink.
func NewReconciler(sink Sink) *Reconciler {
	return &Reconciler{
		sink:  sink,
		state: DeviceState{Role: RoleStandalone},
	}
}

// SetPushActive marks the push channel active or inactive. While active,
// polled updates to push-covered fields are suppressed.
func (r *Reconciler) SetPushActive(active bool) {
	r.mu.Lock()
	r.pushActive = active
	r.mu.Unlock()
}

// PushActive reports whether the push channel is currently active.
func (r *Reconciler) PushActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushActive
}

// Snapshot returns an independent copy of the current DeviceState.
func (r *Reconciler) Snapshot() DeviceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.DeepCopy()
}

// SetIPAddress records the device's configured address. Called once at
// manager initialization, before polling starts.
func (r *Reconciler) SetIPAddress(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setString(FieldIPAddress, &r.state.IPAddress, ip)
}

// ApplyPolledPlayer applies a fast-cadence player status snapshot.
//
// While the push channel is active the push-covered fields (volume, mute,
// transport) are skipped; the remaining playback fields are always applied.
// Positions and durations are normalized from milliseconds to seconds here.
func (r *Reconciler) ApplyPolledPlayer(p PlayerStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.pushActive {
		r.setInt(FieldVolume, &r.state.Volume, p.Volume)
		r.setBool(FieldMute, &r.state.Muted, p.Muted)
		r.setString(FieldTransport, &r.state.Transport, p.Transport)
	}

	r.setString(FieldTitle, &r.state.Title, p.Title)
	r.setString(FieldArtist, &r.state.Artist, p.Artist)
	r.setString(FieldAlbum, &r.state.Album, p.Album)
	r.setInt(FieldPosition, &r.state.Position, int(p.PositionMs/1000))
	r.setInt(FieldDuration, &r.state.Duration, int(p.DurationMs/1000))

	repeat, shuffle, loopOnce := DecodeLoopMode(p.LoopMode)
	r.setBool(FieldRepeat, &r.state.Repeat, repeat)
	r.setBool(FieldShuffle, &r.state.Shuffle, shuffle)
	r.setBool(FieldLoopOnce, &r.state.LoopOnce, loopOnce)

	r.setString(FieldSource, &r.state.Source, p.Source)
}

// ApplyPolledDevice applies a slow-cadence identity/network/group snapshot.
// Push never covers these fields so they are always applied.
func (r *Reconciler) ApplyPolledDevice(d DeviceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setString(FieldName, &r.state.Name, d.Name)
	r.setString(FieldMACAddress, &r.state.MAC, d.MAC)
	r.setString(FieldFirmware, &r.state.Firmware, d.Firmware)
	r.state.UUID = d.UUID
	r.setInt(FieldSignal, &r.state.SignalStrength, d.SignalStrength)

	r.applyTopology(d.Role, d.MasterAddress, d.SlaveAddresses)
	r.setString(FieldGroupName, &r.state.GroupName, d.GroupName)
}

// ApplyPushed applies a pushed partial update. Push is authoritative when
// present: fields are applied regardless of the push-active flag.
func (r *Reconciler) ApplyPushed(f PushedFields) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Volume != nil {
		r.setInt(FieldVolume, &r.state.Volume, *f.Volume)
	}
	if f.Muted != nil {
		r.setBool(FieldMute, &r.state.Muted, *f.Muted)
	}
	if f.Transport != nil {
		r.setString(FieldTransport, &r.state.Transport, *f.Transport)
	}
}

// applyTopology writes the derived group fields, maintaining the role
// invariants. Caller must hold r.mu.
func (r *Reconciler) applyTopology(role Role, masterAddr string, slaves []string) {
	switch role {
	case RoleMaster:
		masterAddr = ""
	case RoleSlave:
		slaves = nil
	case RoleStandalone:
		masterAddr = ""
		slaves = nil
	}

	if r.state.Role != role {
		r.state.Role = role
		r.notify(FieldRole, string(role))
	}
	r.setString(FieldMasterAddr, &r.state.MasterAddress, masterAddr)

	if !stringSlicesEqual(r.state.SlaveAddresses, slaves) {
		r.state.SlaveAddresses = append([]string(nil), slaves...)
		r.notify(FieldSlaves, append([]string(nil), slaves...))
	}
}

func (r *Reconciler) setInt(field string, dst *int, v int) {
	if *dst != v {
		*dst = v
		r.notify(field, v)
	}
}

func (r *Reconciler) setBool(field string, dst *bool, v bool) {
	if *dst != v {
		*dst = v
		r.notify(field, v)
	}
}

func (r *Reconciler) setString(field string, dst *string, v string) {
	if *dst != v {
		*dst = v
		r.notify(field, v)
	}
}

func (r *Reconciler) notify(field string, value interface{}) {
	if r.sink != nil {
		r.sink.UpdateState(field, value)
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
