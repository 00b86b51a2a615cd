package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestJobRunsOnCadence(t *testing.T) {
	s := New(zap.NewNop())
	var runs atomic.Int32

	err := s.Register(Job{
		Name:  "tick-counter",
		Queue: "alerts",
		Every: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if got := runs.Load(); got < 3 {
		t.Errorf("expected at least 3 runs, got %d", got)
	}
}

func TestFailingJobDoesNotBlockOthers(t *testing.T) {
	s := New(zap.NewNop())
	var healthyRuns atomic.Int32

	s.Register(Job{
		Name:  "always-fails",
		Queue: "alerts",
		Every: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})
	s.Register(Job{
		Name:  "healthy",
		Queue: "system",
		Every: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			healthyRuns.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if got := healthyRuns.Load(); got < 3 {
		t.Errorf("healthy job starved by failing job, only %d runs", got)
	}
}

func TestPanickingJobIsRecovered(t *testing.T) {
	s := New(zap.NewNop())
	var after atomic.Int32

	s.Register(Job{
		Name:  "panics",
		Queue: "alerts",
		Every: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			after.Add(1)
			panic("unexpected")
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	s.Start(ctx) // must return without crashing the test binary

	if after.Load() == 0 {
		t.Error("job never ran")
	}
}

func TestSlowJobSkipsOverlappingTicks(t *testing.T) {
	s := New(zap.NewNop())
	var concurrent, peak atomic.Int32

	s.Register(Job{
		Name:  "slow",
		Queue: "alerts",
		Every: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			n := concurrent.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(40 * time.Millisecond)
			concurrent.Add(-1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if peak.Load() > 1 {
		t.Errorf("job overlapped itself, peak concurrency %d", peak.Load())
	}
}

func TestHardTimeoutCancelsJobContext(t *testing.T) {
	s := New(zap.NewNop())
	var timedOut atomic.Bool

	s.Register(Job{
		Name:    "respects-ctx",
		Queue:   "alerts",
		Every:   10 * time.Millisecond,
		Timeout: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				timedOut.Store(true)
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
				return nil
			}
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if !timedOut.Load() {
		t.Error("job context was never cancelled by the hard timeout")
	}
}

func TestRegisterValidation(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.Register(Job{Name: "", Run: func(ctx context.Context) error { return nil }, Every: time.Second}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := s.Register(Job{Name: "no-cadence", Run: func(ctx context.Context) error { return nil }}); err == nil {
		t.Error("expected error for missing cadence")
	}
}
