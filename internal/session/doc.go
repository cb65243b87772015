// Package session maintains an authenticated session to a cloud endpoint
// that silently expires.
//
// The Manager owns the session state machine:
//
//	LoggedOut → LoggingIn → Authenticated → (Expired | LoggedOut on Close)
//
// Cloud clients implement the Authenticator interface (the protocol-specific
// login handshake and keepalive probe); the Manager decides when to invoke
// them. ExecuteWithRetry wraps an operation with the recovery policy:
// verify a stale session before running, and on a session-expired failure
// perform exactly one re-login and one retry. Authentication failures (bad
// credentials) are fatal and never retried; transport failures surface to
// the caller, whose own polling cadence is the retry mechanism.
//
// A background keepalive runs on a fixed cadence only while Authenticated.
// Its failures are logged, not propagated: keepalive is advisory, not
// requested by a user action.
package session
