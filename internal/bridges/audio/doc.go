// Package audio integrates LAN multiroom audio players into the Gray Logic
// platform.
//
// The players expose a plain HTTP command API (GET /httpapi.asp?command=...)
// returning JSON payloads whose values are all strings, with track metadata
// hex-encoded and positions reported in milliseconds. Two payloads matter:
// the player status (playback fields, polled on the fast cadence) and the
// extended status (identity, network and group fields, polled on the slow
// cadence). The parser normalizes both into the canonical model, tolerating
// garbage field values rather than failing the whole payload.
//
// Players also offer UPnP-style eventing: the service subscribes to the
// rendering-control and transport services and receives NOTIFY callbacks on
// a local HTTP listener, which land as pushed volume/mute/transport updates
// in the reconciler. Push supplements polling, it never replaces it —
// polling remains the source of truth for everything push does not cover.
//
// One Manager runs per configured player, owning its scheduler, poller,
// reconciler, push listener, group coordinator and connectivity tracker, and
// handling the player's commands from the MQTT bus.
package audio
