package state

// Role is a device's position in a multiroom group.
type Role string

const (
	// RoleStandalone means the device is not grouped.
	RoleStandalone Role = "standalone"

	// RoleMaster means the device controls a group of slaves.
	RoleMaster Role = "master"

	// RoleSlave means the device is controlled by a group master.
	RoleSlave Role = "slave"
)

// Field keys used in sink notifications. Downstream consumers key channel
// updates off these names.
const (
	FieldVolume       = "volume"
	FieldMute         = "mute"
	FieldTransport    = "transport"
	FieldTitle        = "title"
	FieldArtist       = "artist"
	FieldAlbum        = "album"
	FieldPosition     = "position"
	FieldDuration     = "duration"
	FieldRepeat       = "repeat"
	FieldShuffle      = "shuffle"
	FieldLoopOnce     = "loop_once"
	FieldSource       = "source"
	FieldName         = "name"
	FieldFirmware     = "firmware"
	FieldSignal       = "signal_strength"
	FieldRole         = "role"
	FieldMasterAddr   = "master_address"
	FieldSlaves       = "slaves"
	FieldGroupName    = "group_name"
	FieldIPAddress    = "ip_address"
	FieldMACAddress   = "mac_address"
	FieldClimateTemp  = "temperature"
	FieldClimateSet   = "setpoint"
	FieldClimateMode  = "hvac_mode"
	FieldClimatePower = "heating_power"
)

// DeviceState is the canonical, mutable snapshot of one device.
//
// Invariants maintained by the Reconciler:
//   - role == slave ⇒ MasterAddress non-empty
//   - role == master ⇒ MasterAddress empty
//   - role == standalone ⇒ SlaveAddresses empty
//
// Owned by the Reconciler; all mutation flows through it so the changed-field
// diff used for sink notification stays correct.
type DeviceState struct {
	// Identity
	Name     string
	MAC      string
	Firmware string
	UUID     string

	// Network
	IPAddress      string
	SignalStrength int

	// Playback
	Volume    int
	Muted     bool
	Transport string
	Title     string
	Artist    string
	Album     string
	// Position and Duration are in seconds.
	Position int
	Duration int
	Repeat   bool
	Shuffle  bool
	LoopOnce bool
	Source   string

	// Group
	Role           Role
	MasterAddress  string
	SlaveAddresses []string
	GroupName      string
}

// DeepCopy returns an independent copy of the state.
func (s DeviceState) DeepCopy() DeviceState {
	out := s
	if s.SlaveAddresses != nil {
		out.SlaveAddresses = make([]string, len(s.SlaveAddresses))
		copy(out.SlaveAddresses, s.SlaveAddresses)
	}
	return out
}

// PlayerStatus is the fully-parsed fast-cadence payload.
// Position and duration are device-native milliseconds; the Reconciler
// normalizes them to seconds.
type PlayerStatus struct {
	Volume     int
	Muted      bool
	Transport  string
	Title      string
	Artist     string
	Album      string
	PositionMs int64
	DurationMs int64
	LoopMode   int
	Source     string
}

// DeviceStatus is the fully-parsed slow-cadence payload: identity, network,
// and group fields. Role, MasterAddress and SlaveAddresses are derived from
// the payload's self-reported identifiers before the status reaches the
// Reconciler.
type DeviceStatus struct {
	Name           string
	MAC            string
	Firmware       string
	UUID           string
	SignalStrength int
	Role           Role
	MasterAddress  string
	SlaveAddresses []string
	GroupName      string
}

// PushedFields is a partial update delivered by the push channel.
// Nil pointers mean "not reported in this event".
type PushedFields struct {
	Volume    *int
	Muted     *bool
	Transport *string
}

// Sink receives canonical state changes and connectivity transitions.
//
// UpdateState is idempotent: calling it with an unchanged value is harmless,
// though the Reconciler only emits actual changes. Implementations must be
// safe for concurrent use.
type Sink interface {
	UpdateState(field string, value interface{})
	UpdateConnectivity(online bool, reasonCode, message string)
}
