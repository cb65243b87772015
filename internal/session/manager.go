package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/transport"
)

// State is the session lifecycle state.
type State string

const (
	// StateLoggedOut means no session exists.
	StateLoggedOut State = "logged_out"

	// StateLoggingIn means a login handshake is in flight.
	StateLoggingIn State = "logging_in"

	// StateAuthenticated means the session is believed valid.
	StateAuthenticated State = "authenticated"

	// StateExpired means the endpoint stopped accepting the session.
	StateExpired State = "expired"
)

// Authenticator is the protocol-specific side of a cloud session: the login
// handshake and a lightweight authenticated probe. Implementations report
// failures using the transport package's error kinds.
type Authenticator interface {
	// Login performs the full handshake and establishes a session.
	// A credential rejection returns transport.ErrAuth.
	Login(ctx context.Context) error

	// Keepalive issues a lightweight authenticated request.
	// A rejected session returns transport.ErrSessionExpired.
	Keepalive(ctx context.Context) error
}

// Logger defines the logging interface used by the manager.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Manager owns one cloud session's login/keepalive/retry state.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Login and the operation it protects are ordered: ExecuteWithRetry
//     never runs an operation concurrently with its own re-login.
type Manager struct {
	auth           Authenticator
	sessionTimeout time.Duration
	logger         Logger

	// now is injectable for tests.
	now func() time.Time

	mu       sync.Mutex
	state    State
	lastAuth time.Time
}

// NewManager creates a Manager.
//
// Parameters:
//   - auth: Protocol-specific login/keepalive implementation. Required.
//   - sessionTimeout: Idle time after which the session is verified before
//     the next protected operation. Values <= 0 default to 5 minutes.
//   - logger: May be nil.
//
// Returns:
//   - *Manager: Ready manager in the LoggedOut state
//   - error: If auth is nil
func NewManager(auth Authenticator, sessionTimeout time.Duration, logger Logger) (*Manager, error) {
	if auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if sessionTimeout <= 0 {
		sessionTimeout = 5 * time.Minute
	}
	return &Manager{
		auth:           auth,
		sessionTimeout: sessionTimeout,
		logger:         logger,
		now:            time.Now,
		state:          StateLoggedOut,
	}, nil
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastAuthTime returns when the session was last confirmed valid.
func (m *Manager) LastAuthTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuth
}

// Login performs the full handshake.
//
// On success the state becomes Authenticated and the auth timestamp is
// refreshed. A credential rejection (transport.ErrAuth) is fatal: the state
// returns to LoggedOut and the error surfaces without retry.
func (m *Manager) Login(ctx context.Context) error {
	m.setState(StateLoggingIn)

	if err := m.auth.Login(ctx); err != nil {
		m.setState(StateLoggedOut)
		if errors.Is(err, transport.ErrAuth) {
			m.logWarn("login rejected", "error", err.Error())
		} else {
			m.logWarn("login failed", "error", err.Error())
		}
		return err
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.lastAuth = m.now()
	m.mu.Unlock()

	m.logInfo("session established")
	return nil
}

// Keepalive issues the lightweight probe.
//
// Success refreshes the auth timestamp (and restores Authenticated if the
// session was marked Expired). A session rejection transitions the state to
// Expired and returns transport.ErrSessionExpired.
func (m *Manager) Keepalive(ctx context.Context) error {
	if err := m.auth.Keepalive(ctx); err != nil {
		if errors.Is(err, transport.ErrSessionExpired) {
			m.setState(StateExpired)
		}
		return err
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.lastAuth = m.now()
	m.mu.Unlock()

	return nil
}

// ExecuteWithRetry runs op under the session recovery policy.
//
// Before running: if the session is stale (idle beyond the session timeout)
// or not Authenticated, Keepalive verifies it; a keepalive expiry triggers a
// fresh Login. After running: if op fails with transport.ErrSessionExpired,
// exactly one Login and one retry of op are performed. Any further failure
// surfaces to the caller — no unbounded retry loops.
func (m *Manager) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	if err := m.ensureFresh(ctx); err != nil {
		return err
	}

	err := op(ctx)
	if err == nil || !errors.Is(err, transport.ErrSessionExpired) {
		return err
	}

	m.logDebug("operation hit expired session, re-logging in")
	if lerr := m.Login(ctx); lerr != nil {
		return lerr
	}

	return op(ctx)
}

// BackgroundKeepalive is the body of the periodic keepalive task. It probes
// only while Authenticated and never propagates failures; an expired session
// is left in the Expired state for the next protected operation to recover.
func (m *Manager) BackgroundKeepalive(ctx context.Context) {
	if m.State() != StateAuthenticated {
		return
	}

	if err := m.Keepalive(ctx); err != nil {
		m.logWarn("background keepalive failed", "error", err.Error())
	}
}

// Close discards the session.
func (m *Manager) Close() {
	m.setState(StateLoggedOut)
}

// ensureFresh verifies a stale or unauthenticated session before a
// protected operation runs.
func (m *Manager) ensureFresh(ctx context.Context) error {
	m.mu.Lock()
	stale := m.state != StateAuthenticated || m.now().Sub(m.lastAuth) > m.sessionTimeout
	m.mu.Unlock()

	if !stale {
		return nil
	}

	err := m.Keepalive(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, transport.ErrSessionExpired) {
		return m.Login(ctx)
	}
	return err
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) logDebug(msg string, keysAndValues ...interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, keysAndValues...)
	}
}

func (m *Manager) logInfo(msg string, keysAndValues ...interface{}) {
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *Manager) logWarn(msg string, keysAndValues ...interface{}) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}
