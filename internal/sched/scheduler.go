package sched

import (
	"context"
	"sync"
	"time"
)

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TaskFunc is the work a periodic task performs. The context is cancelled
// when the task (or the whole scheduler) stops.
type TaskFunc func(ctx context.Context)

// Scheduler owns a set of named periodic tasks.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Scheduler struct {
	logger Logger

	mu    sync.Mutex
	tasks []*Task

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. The logger may be nil.
func New(logger Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers and starts a periodic task.
//
// The task runs fn once per interval. A non-positive interval disables the
// task: the returned Task is inert and safe to Kick or Stop.
//
// Parameters:
//   - name: Task name for logging
//   - interval: Cadence; <= 0 disables the task
//   - fn: Work to perform each tick
//
// Returns:
//   - *Task: Handle for kicking or stopping the task
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFunc) *Task {
	t := &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	if interval <= 0 {
		t.disabled = true
		close(t.done)
		s.logDebug("task disabled", "task", name)
		return t
	}

	taskCtx, taskCancel := context.WithCancel(s.ctx)
	t.cancel = taskCancel

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	t.wg.Add(1)
	go t.run(taskCtx)

	s.logDebug("task started", "task", name, "interval", interval.String())
	return t
}

// Stop cancels all tasks and waits for their goroutines to exit.
// Idempotent.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}

func (s *Scheduler) logDebug(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

// Task is one named periodic job.
type Task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
	disabled bool

	kick     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Kick requests an immediate run without resetting the cadence.
// Multiple kicks before the task services them coalesce into one run.
func (t *Task) Kick() {
	if t.disabled {
		return
	}
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Stop cancels the task and waits for its goroutine to exit. Idempotent.
func (t *Task) Stop() {
	if t.disabled {
		return
	}
	t.stopOnce.Do(func() {
		t.cancel()
		t.wg.Wait()
		close(t.done)
	})
}

// Done returns a channel closed when the task has fully stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fn(ctx)
		case <-t.kick:
			t.fn(ctx)
		}
	}
}
