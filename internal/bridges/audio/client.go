package audio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nerrad567/gray-logic-devices/internal/state"
	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// Requester issues HTTP requests to a player.
// Implemented by transport.Requester.
type Requester interface {
	Get(ctx context.Context, rawURL string) (*transport.Result, error)
}

// Client speaks the player HTTP command API.
//
// Every operation is a GET of /httpapi.asp?command={command}; the host is a
// parameter rather than client state because group fan-out sends the same
// command to several players through one client.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	requester Requester
}

// NewClient creates a Client.
func NewClient(requester Requester) (*Client, error) {
	if requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	return &Client{requester: requester}, nil
}

// GetPlayerStatus fetches and parses the fast-cadence playback payload.
func (c *Client) GetPlayerStatus(ctx context.Context, host string) (state.PlayerStatus, error) {
	body, err := c.command(ctx, host, "getPlayerStatus")
	if err != nil {
		return state.PlayerStatus{}, err
	}
	return ParsePlayerStatus(body)
}

// GetDeviceStatus fetches and parses the slow-cadence extended status
// payload, including derived group topology.
func (c *Client) GetDeviceStatus(ctx context.Context, host string) (state.DeviceStatus, error) {
	body, err := c.command(ctx, host, "getStatusEx")
	if err != nil {
		return state.DeviceStatus{}, err
	}
	return ParseDeviceStatus(body)
}

// SetVolume sets the player volume (0-100, clamped).
func (c *Client) SetVolume(ctx context.Context, host string, volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return c.send(ctx, host, fmt.Sprintf("setPlayerCmd:vol:%d", volume))
}

// SetMute sets the player mute state.
func (c *Client) SetMute(ctx context.Context, host string, muted bool) error {
	flag := 0
	if muted {
		flag = 1
	}
	return c.send(ctx, host, fmt.Sprintf("setPlayerCmd:mute:%d", flag))
}

// SetTransport sends a playback transport action: "play", "pause", "stop",
// "next" or "previous".
func (c *Client) SetTransport(ctx context.Context, host, action string) error {
	cmd, ok := map[string]string{
		"play":     "setPlayerCmd:play",
		"pause":    "setPlayerCmd:pause",
		"stop":     "setPlayerCmd:stop",
		"next":     "setPlayerCmd:next",
		"previous": "setPlayerCmd:prev",
	}[action]
	if !ok {
		return fmt.Errorf("%w: transport action %q", ErrInvalidParameters, action)
	}
	return c.send(ctx, host, cmd)
}

// SetLoopMode sends the device-native loop mode code. Callers encode the
// repeat/shuffle/loop-once triple with state.EncodeLoopMode first.
func (c *Client) SetLoopMode(ctx context.Context, host string, code int) error {
	return c.send(ctx, host, fmt.Sprintf("setPlayerCmd:loopmode:%d", code))
}

// Join makes the player at host join the group mastered at masterAddress.
func (c *Client) Join(ctx context.Context, host, masterAddress string) error {
	return c.send(ctx, host, "multiroom/join?master="+masterAddress)
}

// Leave removes the player at host from its current group.
func (c *Client) Leave(ctx context.Context, host string) error {
	return c.send(ctx, host, "multiroom/leave")
}

// Ungroup dissolves the group mastered by the player at host.
func (c *Client) Ungroup(ctx context.Context, host string) error {
	return c.send(ctx, host, "multiroom/ungroup")
}

// Kick removes the named slave from the group mastered by the player at host.
func (c *Client) Kick(ctx context.Context, host, slaveAddress string) error {
	return c.send(ctx, host, "multiroom/kick?slave="+slaveAddress)
}

// command issues one API command and returns the response body.
func (c *Client) command(ctx context.Context, host, command string) ([]byte, error) {
	u := fmt.Sprintf("http://%s/httpapi.asp?command=%s", host, url.QueryEscape(command))
	result, err := c.requester.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("command %q to %s: %w", command, host, err)
	}
	return result.Body, nil
}

// send issues a command whose response carries no payload. Players answer
// "OK" (or an empty body) on success and "Failed" otherwise.
func (c *Client) send(ctx context.Context, host, command string) error {
	body, err := c.command(ctx, host, command)
	if err != nil {
		return err
	}
	reply := strings.TrimSpace(string(body))
	if reply != "" && !strings.EqualFold(reply, "OK") {
		return fmt.Errorf("%w: %q answered %q", ErrDeviceRejected, command, reply)
	}
	return nil
}
