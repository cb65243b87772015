// Package poll fetches device status on two independent cadences.
//
// Devices expose two status surfaces with different staleness tolerances: a
// fast "player status" endpoint (volume, transport, track position) and a
// slow "extended status" endpoint (identity, network, group membership).
// The Poller schedules one repeating task per cadence; a non-positive
// interval disables that cadence entirely.
//
// The Poller does not parse payloads itself — each cadence is a fetch
// closure supplied by the owning bridge, which performs the request, parses
// the response, and forwards the typed payload to the state reconciler. The
// Poller's job is scheduling and outcome accounting: every tick's success
// or failure is reported to the health recorder, and a failed tick never
// touches device state (stale-but-known beats unknown).
//
// The two cadences are fully independent: a failure on the slow cadence
// does not affect the fast cadence's schedule or vice versa.
package poll
