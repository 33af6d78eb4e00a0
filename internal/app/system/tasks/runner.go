// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is a background task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means the run is bounded only by
	// the runner's lifetime.
	Timeout time.Duration
	// SkipInitial delays the first run by one Interval instead of running
	// at Start.
	SkipInitial bool
	Run         func(ctx context.Context) error
}

// Runner executes registered jobs until Stop.
type Runner struct {
	logger   *zap.Logger
	jobs     []Job
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	running  atomic.Int32
	inFlight sync.Map // job name -> struct{}
}

func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Register adds a job. Jobs with a non-positive interval are ignored.
func (r *Runner) Register(job Job) {
	if job.Interval <= 0 || job.Run == nil {
		r.logger.Debug("job not registered", zap.String("job", job.Name), zap.Duration("interval", job.Interval))
		return
	}
	r.jobs = append(r.jobs, job)
}

// Names lists the registered jobs in registration order.
func (r *Runner) Names() []string {
	out := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Name)
	}
	return out
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("background task runner started",
		zap.Strings("jobs", r.Names()))
}

// Stop cancels every job and waits for them until ctx is done, in which
// case it returns ctx.Err() and logs the jobs still in flight.
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
		r.logger.Info("background task runner stopped")
		return nil
	case <-ctx.Done():
		var stuck []string
		r.inFlight.Range(func(key, _ any) bool {
			stuck = append(stuck, key.(string))
			return true
		})
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", stuck),
			zap.Int32("running_count", r.running.Load()))
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	if !job.SkipInitial {
		r.execute(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, job Job) {
	r.running.Add(1)
	r.inFlight.Store(job.Name, struct{}{})
	defer func() {
		r.running.Add(-1)
		r.inFlight.Delete(job.Name)
	}()

	start := time.Now()
	err := runWithTimeout(ctx, job)
	if err == nil {
		r.logger.Debug("job completed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)))
		return
	}
	// cancellation during shutdown is expected
	if ctx.Err() != nil {
		r.logger.Debug("job cancelled during shutdown", zap.String("job", job.Name))
		return
	}
	r.logger.Warn("job failed",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
}

func runWithTimeout(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// RunOnce runs the named job now, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return runWithTimeout(ctx, job)
		}
	}
	return ErrUnknownJob
}
