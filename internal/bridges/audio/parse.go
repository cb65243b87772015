package audio

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/nerrad567/gray-logic-devices/internal/group"
	"github.com/nerrad567/gray-logic-devices/internal/state"
)

// playerStatusPayload is the raw fast-cadence payload. Every value arrives
// as a string regardless of its real type.
type playerStatusPayload struct {
	Volume   string `json:"vol"`
	Mute     string `json:"mute"`
	Status   string `json:"status"`
	Title    string `json:"Title"`
	Artist   string `json:"Artist"`
	Album    string `json:"Album"`
	Position string `json:"curpos"`
	Duration string `json:"totlen"`
	Loop     string `json:"loop"`
	Mode     string `json:"mode"`
}

// deviceStatusPayload is the raw slow-cadence extended status payload.
type deviceStatusPayload struct {
	DeviceName string           `json:"DeviceName"`
	MAC        string           `json:"MAC"`
	Firmware   string           `json:"firmware"`
	UUID       string           `json:"uuid"`
	RSSI       string           `json:"RSSI"`
	GroupName  string           `json:"GroupName"`
	HostUUID   string           `json:"host_uuid"`
	HostIP     string           `json:"host_ip"`
	SlaveList  []slaveListEntry `json:"slave_list"`
}

type slaveListEntry struct {
	IP   string `json:"ip"`
	Name string `json:"name"`
}

// transport control codes reported in the player status "status" field.
var transportByStatus = map[string]string{
	"play":  "play",
	"pause": "pause",
	"stop":  "stop",
	"load":  "loading",
}

// source names reported in the "mode" field. Codes outside the table map to
// "unknown" rather than failing the payload.
var sourceByMode = map[string]string{
	"0":  "idle",
	"1":  "airplay",
	"2":  "dlna",
	"10": "network",
	"11": "usb",
	"31": "spotify",
	"40": "line-in",
	"41": "bluetooth",
	"43": "optical",
}

// ParsePlayerStatus parses the fast-cadence payload into a PlayerStatus.
//
// Field-level garbage is tolerated: an unparsable number falls back to zero
// and an unknown code to its neutral value, because one malformed field must
// not discard an otherwise valid snapshot. Only undecodable JSON fails.
func ParsePlayerStatus(data []byte) (state.PlayerStatus, error) {
	var raw playerStatusPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.PlayerStatus{}, fmt.Errorf("parse player status: %w", err)
	}

	transport, ok := transportByStatus[raw.Status]
	if !ok {
		transport = "stop"
	}

	source, ok := sourceByMode[raw.Mode]
	if !ok {
		source = "unknown"
	}

	return state.PlayerStatus{
		Volume:     parseIntField(raw.Volume),
		Muted:      raw.Mute == "1",
		Transport:  transport,
		Title:      decodeHexText(raw.Title),
		Artist:     decodeHexText(raw.Artist),
		Album:      decodeHexText(raw.Album),
		PositionMs: parseInt64Field(raw.Position),
		DurationMs: parseInt64Field(raw.Duration),
		LoopMode:   parseIntField(raw.Loop),
		Source:     source,
	}, nil
}

// ParseDeviceStatus parses the slow-cadence extended status payload and
// derives the device's group topology from its self-reported identifiers.
func ParseDeviceStatus(data []byte) (state.DeviceStatus, error) {
	var raw deviceStatusPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.DeviceStatus{}, fmt.Errorf("parse device status: %w", err)
	}

	slaves := make([]group.SlaveEntry, 0, len(raw.SlaveList))
	for _, s := range raw.SlaveList {
		slaves = append(slaves, group.SlaveEntry{IP: s.IP, Name: s.Name})
	}
	topo := group.DeriveTopology(raw.UUID, raw.HostUUID, raw.HostIP, slaves)

	return state.DeviceStatus{
		Name:           decodeHexText(raw.DeviceName),
		MAC:            raw.MAC,
		Firmware:       raw.Firmware,
		UUID:           raw.UUID,
		SignalStrength: parseIntField(raw.RSSI),
		Role:           topo.Role,
		MasterAddress:  topo.MasterAddress,
		SlaveAddresses: topo.Slaves,
		GroupName:      decodeHexText(raw.GroupName),
	}, nil
}

// decodeHexText decodes a hex-encoded UTF-8 string. Devices hex-encode track
// metadata and names; payloads from older firmware carry them plain, so a
// value that is not valid hex (or decodes to invalid UTF-8) is returned
// unchanged.
func decodeHexText(s string) string {
	if s == "" || len(s)%2 != 0 {
		return s
	}
	decoded, err := hex.DecodeString(s)
	if err != nil || !utf8.Valid(decoded) {
		return s
	}
	return string(decoded)
}

func parseIntField(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64Field(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
