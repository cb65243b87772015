// Package sched runs named periodic tasks for the device bridges.
//
// Each bridge owns a Scheduler and registers its recurring work on it:
// polling cadences, session keepalives, subscription renewals, health
// reporting. Tasks run on their own goroutine with a ticker; Kick() forces
// an immediate run without disturbing the cadence, and Stop() is idempotent.
//
// A task registered with a non-positive interval is disabled: Every()
// returns a no-op task so callers need no special casing for disabled
// cadences.
package sched
