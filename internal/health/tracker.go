package health

import (
	"sync"
	"sync/atomic"
)

// Status is the tracked connectivity state of a device.
type Status string

const (
	// StatusUnknown means no communication attempt has completed yet.
	StatusUnknown Status = "unknown"

	// StatusOnline means the last communication attempt succeeded.
	StatusOnline Status = "online"

	// StatusOffline means the failure threshold has been reached.
	StatusOffline Status = "offline"
)

// Notifier receives connectivity transitions. Implementations must be safe
// to call from the tracker's caller goroutines.
type Notifier interface {
	ConnectivityChanged(online bool, consecutiveFailures int)
}

// Logger defines the logging interface used by the tracker.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
}

// Tracker debounces offline detection for one device.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Tracker struct {
	threshold int
	notifier  Notifier
	logger    Logger

	mu       sync.Mutex
	status   Status
	failures int

	// Stats counters.
	totalSuccesses atomic.Uint64
	totalFailures  atomic.Uint64
}

// NewTracker creates a Tracker.
//
// Parameters:
//   - threshold: Consecutive failures before the device is reported offline.
//     Values < 1 are clamped to 1.
//   - notifier: Receives online/offline transitions. May be nil.
//   - logger: May be nil.
func NewTracker(threshold int, notifier Notifier, logger Logger) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{
		threshold: threshold,
		notifier:  notifier,
		logger:    logger,
		status:    StatusUnknown,
	}
}

// Success records a successful communication attempt.
//
// The failure counter resets. If the device was not already online the
// tracker reports it online (exactly one notification per transition).
func (t *Tracker) Success() {
	t.totalSuccesses.Add(1)

	t.mu.Lock()
	t.failures = 0
	transitioned := t.status != StatusOnline
	t.status = StatusOnline
	t.mu.Unlock()

	if transitioned {
		t.logInfo("device online")
		if t.notifier != nil {
			t.notifier.ConnectivityChanged(true, 0)
		}
	}
}

// Failure records a failed communication attempt.
//
// When the consecutive failure count reaches the threshold the tracker
// reports the device offline. Further failures while offline do not repeat
// the notification.
func (t *Tracker) Failure() {
	t.totalFailures.Add(1)

	t.mu.Lock()
	t.failures++
	failures := t.failures
	transitioned := failures == t.threshold && t.status != StatusOffline
	if transitioned {
		t.status = StatusOffline
	}
	t.mu.Unlock()

	if transitioned {
		t.logWarn("device offline", "consecutive_failures", failures)
		if t.notifier != nil {
			t.notifier.ConnectivityChanged(false, failures)
		}
		return
	}

	t.logDebug("communication failure", "consecutive_failures", failures)
}

// Status returns the current tracked status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// ConsecutiveFailures returns the current consecutive failure count.
func (t *Tracker) ConsecutiveFailures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

// Stats returns lifetime success and failure totals.
func (t *Tracker) Stats() (successes, failures uint64) {
	return t.totalSuccesses.Load(), t.totalFailures.Load()
}

func (t *Tracker) logDebug(msg string, keysAndValues ...interface{}) {
	if t.logger != nil {
		t.logger.Debug(msg, keysAndValues...)
	}
}

func (t *Tracker) logInfo(msg string, keysAndValues ...interface{}) {
	if t.logger != nil {
		t.logger.Info(msg, keysAndValues...)
	}
}

func (t *Tracker) logWarn(msg string, keysAndValues ...interface{}) {
	if t.logger != nil {
		t.logger.Warn(msg, keysAndValues...)
	}
}
