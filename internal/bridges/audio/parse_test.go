package audio

import (
	"testing"

	"github.com/nerrad567/gray-logic-devices/internal/state"
)

func TestParsePlayerStatus(t *testing.T) {
	payload := []byte(`{
		"vol": "40",
		"mute": "0",
		"status": "play",
		"Title": "426c756520696e20477265656e",
		"Artist": "4d696c6573204461766973",
		"Album": "4b696e64206f6620426c7565",
		"curpos": "125000",
		"totlen": "337000",
		"loop": "0",
		"mode": "31"
	}`)

	got, err := ParsePlayerStatus(payload)
	if err != nil {
		t.Fatalf("ParsePlayerStatus() error = %v", err)
	}

	if got.Volume != 40 || got.Muted {
		t.Errorf("volume/mute = %d/%v, want 40/false", got.Volume, got.Muted)
	}
	if got.Transport != "play" {
		t.Errorf("Transport = %q, want play", got.Transport)
	}
	if got.Title != "Blue in Green" {
		t.Errorf("Title = %q, want decoded hex", got.Title)
	}
	if got.Artist != "Miles Davis" || got.Album != "Kind of Blue" {
		t.Errorf("Artist/Album = %q/%q", got.Artist, got.Album)
	}
	if got.PositionMs != 125000 || got.DurationMs != 337000 {
		t.Errorf("position/duration = %d/%d ms", got.PositionMs, got.DurationMs)
	}
	if got.Source != "spotify" {
		t.Errorf("Source = %q, want spotify", got.Source)
	}
}

func TestParsePlayerStatus_GarbageFieldsTolerated(t *testing.T) {
	payload := []byte(`{
		"vol": "not-a-number",
		"mute": "1",
		"status": "weird",
		"curpos": "",
		"mode": "9999"
	}`)

	got, err := ParsePlayerStatus(payload)
	if err != nil {
		t.Fatalf("ParsePlayerStatus() error = %v", err)
	}

	if got.Volume != 0 {
		t.Errorf("Volume = %d, want 0 for garbage value", got.Volume)
	}
	if !got.Muted {
		t.Error("Muted = false, want true")
	}
	if got.Transport != "stop" {
		t.Errorf("Transport = %q, want stop for unknown status", got.Transport)
	}
	if got.Source != "unknown" {
		t.Errorf("Source = %q, want unknown for unlisted mode", got.Source)
	}
}

func TestParsePlayerStatus_InvalidJSON(t *testing.T) {
	if _, err := ParsePlayerStatus([]byte("<html>busy</html>")); err == nil {
		t.Error("ParsePlayerStatus() expected error for non-JSON body")
	}
}

func TestParseDeviceStatus_Master(t *testing.T) {
	payload := []byte(`{
		"DeviceName": "4b69746368656e",
		"MAC": "00:11:22:33:44:55",
		"firmware": "4.6.415145",
		"uuid": "FF31F09E",
		"RSSI": "-42",
		"GroupName": "446f776e737461697273",
		"host_uuid": "FF31F09E",
		"host_ip": "",
		"slave_list": [
			{"ip": "10.0.0.2", "name": "Dining"},
			{"ip": "", "name": "broken"}
		]
	}`)

	got, err := ParseDeviceStatus(payload)
	if err != nil {
		t.Fatalf("ParseDeviceStatus() error = %v", err)
	}

	if got.Name != "Kitchen" {
		t.Errorf("Name = %q, want decoded hex", got.Name)
	}
	if got.SignalStrength != -42 {
		t.Errorf("SignalStrength = %d, want -42", got.SignalStrength)
	}
	if got.Role != state.RoleMaster {
		t.Errorf("Role = %q, want master", got.Role)
	}
	if len(got.SlaveAddresses) != 1 || got.SlaveAddresses[0] != "10.0.0.2" {
		t.Errorf("SlaveAddresses = %v, want malformed entry skipped", got.SlaveAddresses)
	}
}

func TestParseDeviceStatus_Slave(t *testing.T) {
	payload := []byte(`{
		"uuid": "AAAA",
		"host_uuid": "BBBB",
		"host_ip": "10.0.0.9"
	}`)

	got, err := ParseDeviceStatus(payload)
	if err != nil {
		t.Fatalf("ParseDeviceStatus() error = %v", err)
	}
	if got.Role != state.RoleSlave || got.MasterAddress != "10.0.0.9" {
		t.Errorf("Role/MasterAddress = %q/%q, want slave of 10.0.0.9", got.Role, got.MasterAddress)
	}
}

func TestParseDeviceStatus_Standalone(t *testing.T) {
	got, err := ParseDeviceStatus([]byte(`{"uuid": "AAAA"}`))
	if err != nil {
		t.Fatalf("ParseDeviceStatus() error = %v", err)
	}
	if got.Role != state.RoleStandalone {
		t.Errorf("Role = %q, want standalone", got.Role)
	}
}

func TestDecodeHexText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid hex", "426c756520696e20477265656e", "Blue in Green"},
		{"plain text passes through", "Not Hex At All", "Not Hex At All"},
		{"odd length passes through", "426", "426"},
		{"empty", "", ""},
		{"hex of invalid utf8 passes through", "fffe", "fffe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeHexText(tt.in); got != tt.want {
				t.Errorf("decodeHexText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
