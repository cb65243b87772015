package climate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// fakeCloud emulates the cloud climate API, including its cookie-based
// session.
type fakeCloud struct {
	mu            sync.Mutex
	loginSeeds    int
	loginAttempts int
	keepalives    int
	zoneFetches   int
	setpoints     map[string]float64
	modes         map[string]string

	rejectLogin   bool
	sessionValid  bool
	expireSession bool
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		setpoints: make(map[string]float64),
		modes:     make(map[string]string),
	}
}

func (f *fakeCloud) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.URL.Path == "/account/login" && r.Method == http.MethodGet:
			f.loginSeeds++
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "seed"})
			w.WriteHeader(http.StatusOK)

		case r.URL.Path == "/account/login" && r.Method == http.MethodPost:
			f.loginAttempts++
			if f.rejectLogin {
				json.NewEncoder(w).Encode(loginResponse{Success: false, Error: "bad credentials"})
				return
			}
			f.sessionValid = true
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "session-1"})
			json.NewEncoder(w).Encode(loginResponse{Success: true})

		case r.URL.Path == "/account/keepalive":
			f.keepalives++
			if !f.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)

		case r.URL.Path == "/zones":
			f.zoneFetches++
			if f.expireSession {
				f.sessionValid = false
				f.expireSession = false
			}
			if !f.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(zonesResponse{Zones: []Zone{
				{ID: "living", Name: "Living Room", Temperature: 21.5, Setpoint: 22.0,
					Mode: "auto", HeatingPower: 35, PowerOn: true},
				{ID: "bedroom", Name: "Bedroom", Temperature: 18.2, Setpoint: 17.0,
					Mode: "auto", PowerOn: true},
			}})

		case r.URL.Path == "/zones/living/setpoint" && r.Method == http.MethodPost:
			if !f.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var body map[string]float64
			json.NewDecoder(r.Body).Decode(&body)
			f.setpoints["living"] = body["setpoint"]
			w.WriteHeader(http.StatusOK)

		case r.URL.Path == "/zones/living/mode" && r.Method == http.MethodPost:
			if !f.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			f.modes["living"] = body["mode"]
			w.WriteHeader(http.StatusOK)

		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T) (*Client, *fakeCloud) {
	t.Helper()

	cloud := newFakeCloud()
	server := httptest.NewServer(cloud.handler())
	t.Cleanup(server.Close)

	requester, err := transport.NewRequester(transport.Options{
		Timeout:     2 * time.Second,
		WithCookies: true,
	})
	if err != nil {
		t.Fatalf("NewRequester() error = %v", err)
	}

	client, err := NewClient(ClientOptions{
		BaseURL:   server.URL,
		Username:  "resident@example.com",
		Password:  "hunter2",
		Requester: requester,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, cloud
}

func TestClient_LoginHandshake(t *testing.T) {
	client, cloud := newTestClient(t)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	if cloud.loginSeeds != 1 || cloud.loginAttempts != 1 {
		t.Errorf("seeds/attempts = %d/%d, want 1/1", cloud.loginSeeds, cloud.loginAttempts)
	}
}

func TestClient_LoginRejectedCredentials(t *testing.T) {
	client, cloud := newTestClient(t)
	cloud.rejectLogin = true

	err := client.Login(context.Background())
	if !errors.Is(err, transport.ErrAuth) {
		t.Errorf("Login() error = %v, want ErrAuth", err)
	}
}

func TestClient_KeepaliveExpiredSession(t *testing.T) {
	client, _ := newTestClient(t)

	// No login yet: the probe must classify the rejection as expiry.
	err := client.Keepalive(context.Background())
	if !errors.Is(err, transport.ErrSessionExpired) {
		t.Errorf("Keepalive() error = %v, want ErrSessionExpired", err)
	}
}

func TestClient_ZonesAfterLogin(t *testing.T) {
	client, _ := newTestClient(t)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	zones, err := client.Zones(context.Background())
	if err != nil {
		t.Fatalf("Zones() error = %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("zones = %d, want 2", len(zones))
	}
	if zones[0].ID != "living" || zones[0].Temperature != 21.5 {
		t.Errorf("zone = %+v, want living at 21.5", zones[0])
	}
}

func TestClient_ZonesWithoutSession(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Zones(context.Background())
	if !errors.Is(err, transport.ErrSessionExpired) {
		t.Errorf("Zones() error = %v, want ErrSessionExpired", err)
	}
}

func TestClient_SetSetpoint(t *testing.T) {
	client, cloud := newTestClient(t)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := client.SetSetpoint(context.Background(), "living", 21.5); err != nil {
		t.Fatalf("SetSetpoint() error = %v", err)
	}

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	if cloud.setpoints["living"] != 21.5 {
		t.Errorf("setpoint = %v, want 21.5", cloud.setpoints["living"])
	}
}

func TestNewClient_Validation(t *testing.T) {
	requester, _ := transport.NewRequester(transport.Options{Timeout: time.Second, WithCookies: true})

	if _, err := NewClient(ClientOptions{Username: "u", Password: "p", Requester: requester}); err == nil {
		t.Error("NewClient() expected error for missing base url")
	}
	if _, err := NewClient(ClientOptions{BaseURL: "http://x", Requester: requester}); err == nil {
		t.Error("NewClient() expected error for missing credentials")
	}
	if _, err := NewClient(ClientOptions{BaseURL: "http://x", Username: "u", Password: "p"}); err == nil {
		t.Error("NewClient() expected error for nil requester")
	}
}
