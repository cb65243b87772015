package transport

import "errors"

// Sentinel errors for transport operations.
// Use errors.Is() to check error types.
var (
	// ErrAuth indicates a credential failure: the endpoint understood the
	// request and rejected the identity it carried. Retrying without new
	// credentials will not succeed.
	ErrAuth = errors.New("authentication failed")

	// ErrSessionExpired indicates a previously valid session is no longer
	// accepted. A fresh login may succeed.
	ErrSessionExpired = errors.New("session expired")

	// ErrTransport indicates a network-level failure: timeout, DNS, TLS,
	// connection refused, or an unexpected HTTP status.
	ErrTransport = errors.New("transport failure")

	// ErrRateLimited indicates the endpoint is throttling requests.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidResponse indicates the endpoint replied but the payload
	// could not be parsed.
	ErrInvalidResponse = errors.New("invalid response")
)
