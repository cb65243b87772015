// Package climate integrates session-based cloud climate accounts into the
// Gray Logic platform.
//
// The cloud API authenticates with a cookie-backed session that expires
// server-side: every protected call runs through the session manager, which
// verifies stale sessions with a keepalive probe before the call and
// performs exactly one re-login and retry when a call lands on an expired
// session. A background keepalive task keeps the session warm between polls.
//
// Each account is polled on the slow cadence only; there is no push channel
// and no per-zone fast poll, because the cloud rate-limits aggressive
// clients. Every zone in the account maps to one Gray Logic device with its
// own retained state document, diffed field-by-field so unchanged zones
// publish nothing.
package climate
