package climate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// Requester issues HTTP requests to the cloud API. A cookie jar is required:
// the session identity lives in cookies.
// Implemented by transport.Requester.
type Requester interface {
	Get(ctx context.Context, rawURL string) (*transport.Result, error)
	PostForm(ctx context.Context, rawURL string, form url.Values) (*transport.Result, error)
	PostJSON(ctx context.Context, rawURL string, body []byte) (*transport.Result, error)
}

// Zone is one climate zone as reported by the cloud account.
type Zone struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Temperature  float64 `json:"temperature"`
	Setpoint     float64 `json:"setpoint"`
	Mode         string  `json:"mode"`
	HeatingPower float64 `json:"heating_power"`
	PowerOn      bool    `json:"power_on"`
}

// zonesResponse is the zones listing envelope.
type zonesResponse struct {
	Zones []Zone `json:"zones"`
}

// loginResponse is the login acknowledgement body.
type loginResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Client speaks the cloud climate API. It implements session.Authenticator,
// so a session.Manager can drive its login and keepalive.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines,
//     provided the Requester shares one cookie jar.
type Client struct {
	baseURL   string
	username  string
	password  string
	requester Requester
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// BaseURL is the API root, without trailing slash. Required.
	BaseURL string

	// Username and Password are the account credentials. Required.
	Username string
	Password string

	// Requester issues the HTTP requests. Must carry a cookie jar. Required.
	Requester Requester
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if opts.Username == "" || opts.Password == "" {
		return nil, fmt.Errorf("credentials are required")
	}
	if opts.Requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		username:  opts.Username,
		password:  opts.Password,
		requester: opts.Requester,
	}, nil
}

// Login performs the two-step handshake: an unauthenticated GET seeds the
// session cookie, then the credentialed POST binds it to the account.
//
// A credential rejection — whether by status code or by the body's failure
// marker — returns transport.ErrAuth, which the session manager treats as
// fatal rather than retryable.
func (c *Client) Login(ctx context.Context) error {
	if _, err := c.requester.Get(ctx, c.baseURL+"/account/login"); err != nil {
		return fmt.Errorf("seeding login session: %w", err)
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	result, err := c.requester.PostForm(ctx, c.baseURL+"/account/login", form)
	if err != nil {
		// A 401/403 during login is a credential rejection, not an
		// expired session.
		if errors.Is(err, transport.ErrSessionExpired) {
			return fmt.Errorf("%w: credentials rejected", transport.ErrAuth)
		}
		return fmt.Errorf("submitting login: %w", err)
	}

	var ack loginResponse
	if err := json.Unmarshal(result.Body, &ack); err != nil {
		return fmt.Errorf("%w: undecodable login response", transport.ErrInvalidResponse)
	}
	if !ack.Success {
		return fmt.Errorf("%w: %s", transport.ErrAuth, ack.Error)
	}
	return nil
}

// Keepalive issues the lightweight authenticated probe. A rejected session
// surfaces as transport.ErrSessionExpired via status classification.
func (c *Client) Keepalive(ctx context.Context) error {
	_, err := c.requester.Get(ctx, c.baseURL+"/account/keepalive")
	if err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}
	return nil
}

// Zones fetches all zones of the account.
func (c *Client) Zones(ctx context.Context) ([]Zone, error) {
	result, err := c.requester.Get(ctx, c.baseURL+"/zones")
	if err != nil {
		return nil, fmt.Errorf("fetching zones: %w", err)
	}

	var resp zonesResponse
	if err := json.Unmarshal(result.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: undecodable zones payload", transport.ErrInvalidResponse)
	}
	return resp.Zones, nil
}

// SetSetpoint submits a new target temperature for one zone.
func (c *Client) SetSetpoint(ctx context.Context, zoneID string, setpoint float64) error {
	body, err := json.Marshal(map[string]float64{"setpoint": setpoint})
	if err != nil {
		return fmt.Errorf("encoding setpoint: %w", err)
	}

	u := fmt.Sprintf("%s/zones/%s/setpoint", c.baseURL, url.PathEscape(zoneID))
	if _, err := c.requester.PostJSON(ctx, u, body); err != nil {
		return fmt.Errorf("submitting setpoint for zone %s: %w", zoneID, err)
	}
	return nil
}

// SetMode submits a new HVAC mode for one zone.
func (c *Client) SetMode(ctx context.Context, zoneID, mode string) error {
	body, err := json.Marshal(map[string]string{"mode": mode})
	if err != nil {
		return fmt.Errorf("encoding mode: %w", err)
	}

	u := fmt.Sprintf("%s/zones/%s/mode", c.baseURL, url.PathEscape(zoneID))
	if _, err := c.requester.PostJSON(ctx, u, body); err != nil {
		return fmt.Errorf("submitting mode for zone %s: %w", zoneID, err)
	}
	return nil
}
