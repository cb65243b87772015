// Package health tracks per-device communication health with debounced
// offline detection.
//
// A Tracker counts consecutive communication failures and reports a device
// offline only when the count reaches the configured threshold, so a single
// dropped poll does not flap the device state. The offline notification
// fires exactly once per outage; the first successful communication reports
// the device online again and resets the counter.
package health
