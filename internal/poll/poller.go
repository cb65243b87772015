package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/sched"
)

// FetchFunc performs one status fetch: request, parse, and forward to the
// reconciler. A non-nil error marks the tick failed; the implementation
// must not write device state on the error path.
type FetchFunc func(ctx context.Context) error

// Recorder receives per-tick success/failure signals.
// Implemented by health.Tracker.
type Recorder interface {
	Success()
	Failure()
}

// Logger defines the logging interface used by the poller.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Options configures a Poller.
type Options struct {
	// Scheduler runs the polling tasks. Required.
	Scheduler *sched.Scheduler

	// Fast is the fast-cadence fetch. Nil disables the cadence.
	Fast FetchFunc

	// Slow is the slow-cadence fetch. Nil disables the cadence.
	Slow FetchFunc

	// FastInterval and SlowInterval are the cadences; <= 0 disables.
	FastInterval time.Duration
	SlowInterval time.Duration

	// Recorder receives per-tick outcomes. May be nil.
	Recorder Recorder

	// Logger may be nil.
	Logger Logger
}

// Poller runs the two polling cadences for one device.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Poller struct {
	opts Options

	mu       sync.Mutex
	started  bool
	fastTask *sched.Task
	slowTask *sched.Task
}

// NewPoller creates a Poller.
func NewPoller(opts Options) (*Poller, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	return &Poller{opts: opts}, nil
}

// Start schedules both cadences. Starting twice is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	if p.opts.Fast != nil {
		p.fastTask = p.opts.Scheduler.Every("poll-fast", p.opts.FastInterval,
			p.tick("fast", p.opts.Fast))
	}
	if p.opts.Slow != nil {
		p.slowTask = p.opts.Scheduler.Every("poll-slow", p.opts.SlowInterval,
			p.tick("slow", p.opts.Slow))
	}
}

// Stop cancels both cadences. Idempotent, and safe to call even if Start
// was never invoked.
func (p *Poller) Stop() {
	p.mu.Lock()
	fast, slow := p.fastTask, p.slowTask
	p.fastTask, p.slowTask = nil, nil
	p.started = false
	p.mu.Unlock()

	if fast != nil {
		fast.Stop()
	}
	if slow != nil {
		slow.Stop()
	}
}

// TriggerNow requests an immediate fast-cadence fetch without disturbing
// the schedule. No-op if the fast cadence is disabled or not started.
func (p *Poller) TriggerNow() {
	p.mu.Lock()
	task := p.fastTask
	p.mu.Unlock()

	if task != nil {
		task.Kick()
	}
}

// RefreshNow requests an immediate slow-cadence fetch; group topology is
// re-derived from the payload it returns. No-op if the slow cadence is
// disabled or not started.
func (p *Poller) RefreshNow() {
	p.mu.Lock()
	task := p.slowTask
	p.mu.Unlock()

	if task != nil {
		task.Kick()
	}
}

// tick wraps a fetch with outcome accounting.
func (p *Poller) tick(cadence string, fetch FetchFunc) sched.TaskFunc {
	return func(ctx context.Context) {
		if err := fetch(ctx); err != nil {
			p.logWarn("poll failed", "cadence", cadence, "error", err.Error())
			if p.opts.Recorder != nil {
				p.opts.Recorder.Failure()
			}
			return
		}

		p.logDebug("poll ok", "cadence", cadence)
		if p.opts.Recorder != nil {
			p.opts.Recorder.Success()
		}
	}
}

func (p *Poller) logDebug(msg string, keysAndValues ...interface{}) {
	if p.opts.Logger != nil {
		p.opts.Logger.Debug(msg, keysAndValues...)
	}
}

func (p *Poller) logWarn(msg string, keysAndValues ...interface{}) {
	if p.opts.Logger != nil {
		p.opts.Logger.Warn(msg, keysAndValues...)
	}
}
