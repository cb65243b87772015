package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/sched"
	"github.com/nerrad567/gray-logic-devices/internal/state"
)

// Subscriber is the device-side eventing transport.
type Subscriber interface {
	// Subscribe opens a subscription to a named service and returns its
	// expiry time.
	Subscribe(ctx context.Context, service string) (time.Time, error)

	// Renew extends an existing subscription and returns the new expiry.
	Renew(ctx context.Context, service string) (time.Time, error)
}

// DecodeFunc translates a pushed (service, variable, value) triple into
// partial state fields. The second return is false for unrecognized pairs.
type DecodeFunc func(service, variable, value string) (state.PushedFields, bool)

// Applier receives decoded push updates. Implemented by state.Reconciler.
type Applier interface {
	ApplyPushed(state.PushedFields)
	SetPushActive(bool)
}

// Logger defines the logging interface used by the listener.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Options configures a Listener.
type Options struct {
	// Subscriber opens and renews subscriptions. Required.
	Subscriber Subscriber

	// Services is the fixed set of service names to subscribe to. Required.
	Services []string

	// Decoder translates pushed triples. Required.
	Decoder DecodeFunc

	// Applier receives decoded updates. Required.
	Applier Applier

	// Scheduler runs the renewal task. Required.
	Scheduler *sched.Scheduler

	// RenewalInterval is the renewal task cadence. Default: 60s.
	RenewalInterval time.Duration

	// RenewalWindow renews a subscription when its expiry is within this
	// window. Default: 2 × RenewalInterval.
	RenewalWindow time.Duration

	// RetryDelay is the fixed delay before the single bounded retry of a
	// failed subscription. Default: 30s.
	RetryDelay time.Duration

	// Logger may be nil.
	Logger Logger
}

// Listener tracks push subscriptions for one device.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Listener struct {
	opts Options

	mu      sync.Mutex
	subs    map[string]time.Time // service → expiry
	retried map[string]bool      // service → bounded retry consumed
	timers  []*time.Timer
	stopped bool

	renewTask *sched.Task

	// now is injectable for tests.
	now func() time.Time
}

// NewListener creates a Listener.
func NewListener(opts Options) (*Listener, error) {
	if opts.Subscriber == nil {
		return nil, fmt.Errorf("subscriber is required")
	}
	if len(opts.Services) == 0 {
		return nil, fmt.Errorf("at least one service is required")
	}
	if opts.Decoder == nil {
		return nil, fmt.Errorf("decoder is required")
	}
	if opts.Applier == nil {
		return nil, fmt.Errorf("applier is required")
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if opts.RenewalInterval <= 0 {
		opts.RenewalInterval = 60 * time.Second
	}
	if opts.RenewalWindow <= 0 {
		opts.RenewalWindow = 2 * opts.RenewalInterval
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}

	return &Listener{
		opts:    opts,
		subs:    make(map[string]time.Time),
		retried: make(map[string]bool),
		now:     time.Now,
	}, nil
}

// Start subscribes to all configured services and schedules the renewal
// task. Subscription failures are not fatal: each failed service gets one
// bounded retry after the configured delay.
func (l *Listener) Start(ctx context.Context) {
	for _, service := range l.opts.Services {
		l.subscribe(ctx, service)
	}

	l.renewTask = l.opts.Scheduler.Every("push-renewal", l.opts.RenewalInterval, l.renewTick)
}

// Stop cancels the renewal task and pending retries. Idempotent.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.stopped = true
	timers := l.timers
	l.timers = nil
	l.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}

	if l.renewTask != nil {
		l.renewTask.Stop()
	}
}

// OnEvent handles one pushed (variable, value, service) triple.
// Unrecognized pairs are logged at debug severity and dropped.
func (l *Listener) OnEvent(variable, value, service string) {
	fields, ok := l.opts.Decoder(service, variable, value)
	if !ok {
		l.logDebug("unrecognized push event",
			"service", service, "variable", variable)
		return
	}

	l.opts.Applier.ApplyPushed(fields)
}

// OnSubscribed records a subscription outcome reported by the transport.
// On failure, one bounded retry is scheduled after the fixed delay.
func (l *Listener) OnSubscribed(service string, success bool) {
	if success {
		l.mu.Lock()
		l.retried[service] = false
		l.mu.Unlock()
		l.updateActive()
		return
	}

	l.mu.Lock()
	delete(l.subs, service)
	alreadyRetried := l.retried[service]
	if !alreadyRetried {
		l.retried[service] = true
	}
	stopped := l.stopped
	l.mu.Unlock()

	l.updateActive()

	if alreadyRetried || stopped {
		l.logWarn("subscription failed, retry exhausted", "service", service)
		return
	}

	l.logWarn("subscription failed, scheduling one retry",
		"service", service, "delay", l.opts.RetryDelay.String())

	timer := time.AfterFunc(l.opts.RetryDelay, func() {
		l.subscribe(context.Background(), service)
	})

	l.mu.Lock()
	l.timers = append(l.timers, timer)
	l.mu.Unlock()
}

// Active reports whether at least one subscription is live.
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs) > 0
}

// Subscriptions returns the current service → expiry map.
func (l *Listener) Subscriptions() map[string]time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]time.Time, len(l.subs))
	for k, v := range l.subs {
		out[k] = v
	}
	return out
}

// subscribe opens one subscription and reports the outcome through
// OnSubscribed.
func (l *Listener) subscribe(ctx context.Context, service string) {
	expiry, err := l.opts.Subscriber.Subscribe(ctx, service)
	if err != nil {
		l.OnSubscribed(service, false)
		return
	}

	l.mu.Lock()
	l.subs[service] = expiry
	l.mu.Unlock()

	l.logDebug("subscribed", "service", service, "expiry", expiry.Format(time.RFC3339))
	l.OnSubscribed(service, true)
}

// renewTick renews subscriptions nearing expiry and removes entries that
// already expired.
func (l *Listener) renewTick(ctx context.Context) {
	l.mu.Lock()
	now := l.now()
	due := make([]string, 0, len(l.subs))
	for service, expiry := range l.subs {
		if now.After(expiry) {
			// Already expired: remove rather than renew stale state.
			delete(l.subs, service)
			l.logDebug("subscription expired, removed", "service", service)
			continue
		}
		if expiry.Sub(now) <= l.opts.RenewalWindow {
			due = append(due, service)
		}
	}
	l.mu.Unlock()

	for _, service := range due {
		expiry, err := l.opts.Subscriber.Renew(ctx, service)
		if err != nil {
			l.logWarn("renewal failed", "service", service, "error", err.Error())
			l.mu.Lock()
			delete(l.subs, service)
			l.mu.Unlock()
			continue
		}

		l.mu.Lock()
		l.subs[service] = expiry
		l.mu.Unlock()
		l.logDebug("subscription renewed", "service", service)
	}

	l.updateActive()
}

// updateActive propagates the channel-active flag to the applier.
func (l *Listener) updateActive() {
	l.opts.Applier.SetPushActive(l.Active())
}

func (l *Listener) logDebug(msg string, keysAndValues ...interface{}) {
	if l.opts.Logger != nil {
		l.opts.Logger.Debug(msg, keysAndValues...)
	}
}

func (l *Listener) logWarn(msg string, keysAndValues ...interface{}) {
	if l.opts.Logger != nil {
		l.opts.Logger.Warn(msg, keysAndValues...)
	}
}
