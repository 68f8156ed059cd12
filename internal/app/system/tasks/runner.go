// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is a background task run every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means the run is limited only by
	// shutdown.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Status summarizes what a job has done since Start.
type Status struct {
	Name     string
	Runs     int
	Failures int
	LastRun  time.Time
	LastErr  string
	Running  bool
}

// Runner executes registered jobs on their intervals until stopped.
type Runner struct {
	logger *zap.Logger
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	status map[string]*Status
}

// New creates a new task runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger,
		status: make(map[string]*Status),
	}
}

// Register adds a job to the runner. Jobs without a positive interval are
// ignored, which lets config disable a job by setting its interval to zero.
func (r *Runner) Register(job Job) {
	if job.Interval <= 0 {
		r.logger.Info("background job disabled", zap.String("job", job.Name))
		return
	}
	r.jobs = append(r.jobs, job)
	r.mu.Lock()
	r.status[job.Name] = &Status{Name: job.Name}
	r.mu.Unlock()
}

// Jobs returns the names of the registered jobs in registration order.
func (r *Runner) Jobs() []string {
	names := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		names[i] = j.Name
	}
	return names
}

// Status returns a snapshot of every registered job in registration order.
func (r *Runner) Status() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *r.status[j.Name])
	}
	return out
}

// Start launches one goroutine per job. The first run of each job happens
// one interval after Start.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("background task runner started",
		zap.Strings("jobs", r.Jobs()))
}

// Stop cancels all jobs and waits for them to return. If ctx ends first it
// returns ctx.Err() and names the jobs that were still running.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		for _, s := range r.Status() {
			r.logger.Info("background job summary",
				zap.String("job", s.Name),
				zap.Int("runs", s.Runs),
				zap.Int("failures", s.Failures))
		}
		r.logger.Info("background task runner stopped gracefully")
		return nil
	case <-ctx.Done():
		var stillRunning []string
		for _, s := range r.Status() {
			if s.Running {
				stillRunning = append(stillRunning, s.Name)
			}
		}
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", stillRunning))
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			_ = r.execute(ctx, job)
		}
	}
}

// execute runs job once, recording the outcome. A panicking job is logged
// and counted as a failure; the runner keeps going.
func (r *Runner) execute(ctx context.Context, job Job) (err error) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	r.setRunning(job.Name, true)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, p)
		}
		r.finish(job.Name, start, err)

		switch {
		case err == nil:
			r.logger.Debug("job completed",
				zap.String("job", job.Name),
				zap.Duration("duration", time.Since(start)))
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			r.logger.Debug("job cancelled during shutdown",
				zap.String("job", job.Name),
				zap.Duration("duration", time.Since(start)))
		default:
			r.logger.Error("job failed",
				zap.String("job", job.Name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
		}
	}()

	return job.Run(ctx)
}

func (r *Runner) setRunning(name string, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.status[name]; ok {
		s.Running = running
	}
}

func (r *Runner) finish(name string, start time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.status[name]
	if !ok {
		return
	}
	s.Running = false
	s.Runs++
	s.LastRun = start
	s.LastErr = ""
	if err != nil {
		s.Failures++
		s.LastErr = err.Error()
	}
}

// RunOnce executes a registered job immediately and returns its error.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return r.execute(ctx, job)
		}
	}
	return ErrUnknownJob
}
