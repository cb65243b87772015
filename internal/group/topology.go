package group

import "github.com/nerrad567/gray-logic-devices/internal/state"

// SlaveEntry is one entry of the slave list embedded in a master's
// extended status payload.
type SlaveEntry struct {
	IP   string
	Name string
}

// Topology is a device's derived group position. Derived, not stored:
// valid only for the payload it was computed from.
type Topology struct {
	Role          state.Role
	MasterAddress string
	Slaves        []string
}

// DeriveTopology computes a device's group role from its self-reported
// identifiers.
//
// Rules:
//   - hostUUID empty ⇒ standalone
//   - uuid == hostUUID ⇒ master; the slave list is parsed from entries,
//     skipping malformed (empty-IP) entries rather than failing
//   - uuid != hostUUID ⇒ slave; the master address is the reported host IP
//
// Parameters:
//   - uuid: The device's own unique identifier
//   - hostUUID: The "host"/master identifier reported in the same payload
//   - hostIP: The master's IP address as reported by the payload
//   - slaves: The embedded slave list (meaningful only for masters)
func DeriveTopology(uuid, hostUUID, hostIP string, slaves []SlaveEntry) Topology {
	if hostUUID == "" {
		return Topology{Role: state.RoleStandalone}
	}

	if uuid == hostUUID {
		addrs := make([]string, 0, len(slaves))
		for _, s := range slaves {
			if s.IP == "" {
				// Malformed entry: skip, not fatal.
				continue
			}
			addrs = append(addrs, s.IP)
		}
		return Topology{Role: state.RoleMaster, Slaves: addrs}
	}

	return Topology{Role: state.RoleSlave, MasterAddress: hostIP}
}
