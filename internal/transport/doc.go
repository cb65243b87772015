// Package transport provides HTTP request execution for device communication.
//
// This package manages:
//   - Per-request timeouts via context deadlines
//   - Cookie jar support for session-based cloud APIs
//   - Classification of failures into the shared error kinds
//
// All device and cloud clients in this service issue their requests through
// a Requester so failures carry a consistent error kind: callers decide what
// to do with errors.Is checks rather than string matching.
//
// # Error Classification
//
//   - Network failures (timeout, DNS, TLS, connection refused) → ErrTransport
//   - HTTP 401/403 → ErrSessionExpired
//   - HTTP 429 → ErrRateLimited
//   - Other non-2xx statuses → ErrTransport
//
// Body-level failure markers (e.g. a login rejection inside a 200 response)
// are the calling client's concern; this package only classifies what it can
// see at the HTTP layer.
package transport
