// Package group derives multiroom topology and fans group commands out to
// every member.
//
// Topology is never stored: it is a pure function of the device's latest
// self-reported status payload (its own UUID versus the reported host UUID,
// plus an embedded slave list when the device is a master), recomputed on
// every fetch because membership can change between polls.
//
// The Coordinator reads the canonical DeviceState but never mutates it —
// all state mutation flows through the reconciler, preserving single-writer
// discipline. Group volume and mute fan out from a master to every slave
// and to the master itself, with per-target failures logged independently:
// one unreachable slave never aborts the rest of the fan-out. A slave or
// standalone device applies the change to itself only, logged at debug
// severity because remote controls routinely send group commands to every
// member.
//
// Join, leave, ungroup and kick send their single command and then trigger
// a topology refresh; the resulting role is always re-derived from the next
// fetched payload, never assumed.
package group
