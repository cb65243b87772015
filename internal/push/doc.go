// Package push manages device-side event subscriptions and forwards pushed
// updates into state reconciliation.
//
// A Listener subscribes to a small fixed set of named services on the
// device's eventing transport. Incoming (variable, value, service) triples
// are decoded by a bridge-supplied decoder; unrecognized pairs are logged
// at debug severity and dropped, never treated as errors.
//
// Subscription lifecycle:
//   - A failed subscription gets exactly one bounded retry after a fixed
//     delay — never an unbounded retry loop, to avoid log amplification
//     when a device is unreachable over the push transport.
//   - Subscriptions have a bounded lifetime; a renewal task runs on a fixed
//     schedule independent of event arrival, renews subscriptions nearing
//     expiry, and removes entries that already expired instead of renewing
//     stale state.
//
// While at least one subscription is live the push channel is marked active
// on the reconciler, which suppresses polled updates for push-covered
// fields.
package push
