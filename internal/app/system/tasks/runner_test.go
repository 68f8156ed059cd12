package tasks_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"github.com/dalemusser/stratavisit/internal/app/system/tasks"
	"go.uber.org/zap"
)

func TestRunner_StartAndStop(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var runCount atomic.Int32
	runner.Register(tasks.Job{
		Name:     "test-job",
		Interval: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runCount.Add(1)
			return nil
		},
	})

	runner.Start()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}

	if runCount.Load() < 1 {
		t.Errorf("expected job to run at least once, ran %d times", runCount.Load())
	}
}

func TestRunner_NoRunBeforeFirstInterval(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var runCount atomic.Int32
	runner.Register(tasks.Job{
		Name:     "hourly",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runCount.Add(1)
			return nil
		},
	})

	runner.Start()
	time.Sleep(30 * time.Millisecond)
	_ = runner.Stop(context.Background())

	if runCount.Load() != 0 {
		t.Errorf("job ran %d times before its first interval", runCount.Load())
	}
}

func TestRunner_StopWithTimeout(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	inSleep := make(chan struct{})
	var once atomic.Bool
	runner.Register(tasks.Job{
		Name:     "slow-job",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			if once.CompareAndSwap(false, true) {
				close(inSleep)
			}
			// ignores ctx on purpose
			time.Sleep(2 * time.Second)
			return nil
		},
	})

	runner.Start()
	<-inSleep

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := runner.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded error, got: %v", err)
	}
}

func TestRunner_RegisterDisabled(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	runner.Register(tasks.Job{Name: "off", Interval: 0, Run: func(context.Context) error { return nil }})
	runner.Register(tasks.Job{Name: "on", Interval: time.Minute, Run: func(context.Context) error { return nil }})

	jobs := runner.Jobs()
	if len(jobs) != 1 || jobs[0] != "on" {
		t.Errorf("Jobs() = %v, want [on]", jobs)
	}
}

func TestRunner_RunOnce(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var runCount atomic.Int32
	runner.Register(tasks.Job{
		Name:     "manual-job",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runCount.Add(1)
			return nil
		},
	})

	if err := runner.RunOnce(context.Background(), "manual-job"); err != nil {
		t.Errorf("RunOnce() returned error: %v", err)
	}
	if runCount.Load() != 1 {
		t.Errorf("expected job to run once, ran %d times", runCount.Load())
	}

	if err := runner.RunOnce(context.Background(), "nonexistent-job"); !errors.Is(err, tasks.ErrUnknownJob) {
		t.Errorf("RunOnce(nonexistent) = %v, want ErrUnknownJob", err)
	}
}

func TestRunner_JobContextCancellation(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	started := make(chan struct{})
	contextCancelled := make(chan struct{})
	var once atomic.Bool
	runner.Register(tasks.Job{
		Name:     "context-aware-job",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			if !once.CompareAndSwap(false, true) {
				return nil
			}
			close(started)
			<-ctx.Done()
			close(contextCancelled)
			return ctx.Err()
		},
	})

	runner.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}

	select {
	case <-contextCancelled:
	case <-time.After(time.Second):
		t.Error("job context was not cancelled")
	}
}

func TestTableSweepJob(t *testing.T) {
	reg := visitors.NewRegistry()
	reg.Table("stale")

	time.Sleep(5 * time.Millisecond)

	runner := tasks.New(zap.NewNop())
	runner.Register(tasks.TableSweepJob(reg, time.Millisecond, time.Minute, zap.NewNop()))

	if err := runner.RunOnce(context.Background(), tasks.JobTableSweep); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("registry Len() = %d after sweep, want 0", reg.Len())
	}
}

func TestRunner_Status(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	fail := true
	runner.Register(tasks.Job{
		Name:     "flaky",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			if fail {
				return errors.New("boom")
			}
			return nil
		},
	})

	_ = runner.RunOnce(context.Background(), "flaky")
	fail = false
	_ = runner.RunOnce(context.Background(), "flaky")

	st := runner.Status()
	if len(st) != 1 {
		t.Fatalf("Status() returned %d jobs, want 1", len(st))
	}
	if st[0].Runs != 2 || st[0].Failures != 1 {
		t.Errorf("Status() = %+v, want 2 runs and 1 failure", st[0])
	}
	if st[0].LastErr != "" || st[0].LastRun.IsZero() {
		t.Errorf("Status() = %+v, want a clean last run", st[0])
	}
}

func TestRunner_PanicIsRecovered(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	runner.Register(tasks.Job{
		Name:     "panics",
		Interval: time.Hour,
		Run:      func(context.Context) error { panic("bad job") },
	})

	err := runner.RunOnce(context.Background(), "panics")
	if err == nil {
		t.Fatal("RunOnce() returned nil for a panicking job")
	}
	if st := runner.Status()[0]; st.Failures != 1 || st.Running {
		t.Errorf("Status() = %+v, want one failure and not running", st)
	}
}

func TestRunner_JobTimeout(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	runner.Register(tasks.Job{
		Name:     "bounded",
		Interval: time.Hour,
		Timeout:  20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	if err := runner.RunOnce(context.Background(), "bounded"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunOnce() = %v, want DeadlineExceeded", err)
	}
}
