// Package state owns the canonical device state and reconciles the two
// update sources that feed it.
//
// A device's state arrives from two independent directions: periodic polls
// (full snapshots, higher latency) and pushed events (partial updates, low
// latency). The Reconciler is the single writer of DeviceState and applies
// a precedence rule: while the push channel is active, polled values for
// push-covered fields (volume, mute, transport) are suppressed so the two
// sources cannot oscillate a field between two representations of the same
// physical value. Pushed updates are always applied.
//
// Every mutation runs per-field change detection; the sink is notified only
// for fields whose value actually changed, so a poll tick that observes no
// change produces no downstream churn.
//
// Numeric conventions: positions and durations are normalized from
// device-native milliseconds to seconds at the reconciler boundary, and the
// device-native loop-mode integer is decoded into the orthogonal booleans
// repeat/shuffle/loopOnce via the table in loopmode.go.
package state
