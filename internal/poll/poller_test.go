package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/sched"
)

// mockRecorder counts outcome signals.
type mockRecorder struct {
	successes atomic.Int64
	failures  atomic.Int64
}

func (m *mockRecorder) Success() { m.successes.Add(1) }
func (m *mockRecorder) Failure() { m.failures.Add(1) }

func TestPoller_BothCadencesRun(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	var fast, slow atomic.Int64
	recorder := &mockRecorder{}

	p, err := NewPoller(Options{
		Scheduler:    s,
		Fast:         func(ctx context.Context) error { fast.Add(1); return nil },
		Slow:         func(ctx context.Context) error { slow.Add(1); return nil },
		FastInterval: 10 * time.Millisecond,
		SlowInterval: 25 * time.Millisecond,
		Recorder:     recorder,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Start()
	defer p.Stop()

	time.Sleep(120 * time.Millisecond)

	if got := fast.Load(); got < 5 {
		t.Errorf("fast ticks = %d, want at least 5", got)
	}
	if got := slow.Load(); got < 2 {
		t.Errorf("slow ticks = %d, want at least 2", got)
	}
	if got := recorder.successes.Load(); got < 7 {
		t.Errorf("recorded successes = %d, want at least 7", got)
	}
}

func TestPoller_RequiresScheduler(t *testing.T) {
	if _, err := NewPoller(Options{}); err == nil {
		t.Fatal("NewPoller() expected error for nil scheduler")
	}
}

func TestPoller_FailureReportedNotFatal(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	recorder := &mockRecorder{}

	p, err := NewPoller(Options{
		Scheduler:    s,
		Fast:         func(ctx context.Context) error { return errors.New("device unreachable") },
		FastInterval: 10 * time.Millisecond,
		Recorder:     recorder,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Start()
	defer p.Stop()

	time.Sleep(60 * time.Millisecond)

	if got := recorder.failures.Load(); got < 3 {
		t.Errorf("recorded failures = %d, want at least 3", got)
	}
	if got := recorder.successes.Load(); got != 0 {
		t.Errorf("recorded successes = %d, want 0", got)
	}
}

func TestPoller_CadencesIndependent(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	var fast atomic.Int64
	recorder := &mockRecorder{}

	// The slow cadence always fails; the fast cadence must keep running.
	p, err := NewPoller(Options{
		Scheduler:    s,
		Fast:         func(ctx context.Context) error { fast.Add(1); return nil },
		Slow:         func(ctx context.Context) error { return errors.New("parse error") },
		FastInterval: 10 * time.Millisecond,
		SlowInterval: 10 * time.Millisecond,
		Recorder:     recorder,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Start()
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)

	if got := fast.Load(); got < 5 {
		t.Errorf("fast ticks = %d, want at least 5 despite slow failures", got)
	}
	if got := recorder.failures.Load(); got == 0 {
		t.Error("slow failures not recorded")
	}
}

func TestPoller_DisabledCadence(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	var fast, slow atomic.Int64

	p, err := NewPoller(Options{
		Scheduler:    s,
		Fast:         func(ctx context.Context) error { fast.Add(1); return nil },
		Slow:         func(ctx context.Context) error { slow.Add(1); return nil },
		FastInterval: 10 * time.Millisecond,
		SlowInterval: 0, // disabled
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Start()
	defer p.Stop()

	time.Sleep(60 * time.Millisecond)

	if got := slow.Load(); got != 0 {
		t.Errorf("slow ticks = %d, want 0 for disabled cadence", got)
	}
	if got := fast.Load(); got < 3 {
		t.Errorf("fast ticks = %d, want at least 3", got)
	}
}

func TestPoller_StopIdempotent(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	p, err := NewPoller(Options{
		Scheduler:    s,
		Fast:         func(ctx context.Context) error { return nil },
		FastInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	// Stop before Start must be safe.
	p.Stop()

	p.Start()
	p.Stop()
	p.Stop()
}

func TestPoller_TriggerNow(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	ran := make(chan struct{}, 1)

	p, err := NewPoller(Options{
		Scheduler: s,
		Fast: func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
		FastInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Start()
	defer p.Stop()

	p.TriggerNow()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("TriggerNow() did not run the fast fetch")
	}
}

func TestPoller_RefreshNowBeforeStartSafe(t *testing.T) {
	s := sched.New(nil)
	defer s.Stop()

	p, err := NewPoller(Options{
		Scheduler:    s,
		Slow:         func(ctx context.Context) error { return nil },
		SlowInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	// Must not panic before Start.
	p.RefreshNow()
	p.TriggerNow()
}
