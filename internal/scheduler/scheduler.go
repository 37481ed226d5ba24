package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beps/internal/domain/repositories"

	"github.com/robfig/cron/v3"
)

// JobFunc is one run of a scheduled job.
type JobFunc func(ctx context.Context) error

type job struct {
	name string
	spec string
	run  JobFunc
}

// Scheduler runs background jobs on the one process that holds the leader
// lock. Processes that lose the lock schedule nothing.
type Scheduler struct {
	lock   repositories.LeaderLock
	cron   *cron.Cron
	jobs   []job
	ctx    context.Context
	cancel context.CancelFunc
	leader bool
	logger *slog.Logger
}

// New creates a scheduler whose cron specs are evaluated in loc.
func New(lock repositories.LeaderLock, loc *time.Location, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		lock: lock,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Add queues a job. Jobs are registered with cron only once Start wins the lock.
func (s *Scheduler) Add(name, spec string, run JobFunc) {
	s.jobs = append(s.jobs, job{name: name, spec: spec, run: run})
}

// Start tries the leader lock without blocking. It reports whether this
// process became the leader and started its jobs.
func (s *Scheduler) Start(ctx context.Context) (bool, error) {
	ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !ok {
		s.logger.Info("scheduler lock held elsewhere, not scheduling jobs")
		return false, nil
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for _, j := range s.jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(j) }); err != nil {
			s.cancel()
			if rerr := s.lock.Release(ctx); rerr != nil {
				s.logger.Error("release scheduler lock", "error", rerr)
			}
			return false, fmt.Errorf("schedule %s (%q): %w", j.name, j.spec, err)
		}
		s.logger.Info("job scheduled", "job", j.name, "spec", j.spec)
	}

	s.leader = true
	s.cron.Start()
	return true, nil
}

func (s *Scheduler) runJob(j job) {
	start := time.Now()
	if err := j.run(s.ctx); err != nil {
		s.logger.Error("job failed", "job", j.name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("job finished", "job", j.name, "duration", time.Since(start))
}

// Stop waits for running jobs (bounded by ctx) and releases the lock.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.leader {
		return nil
	}
	s.leader = false

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, abandoning running jobs")
	}
	s.cancel()
	return s.lock.Release(ctx)
}

// Leader reports whether Start won the lock.
func (s *Scheduler) Leader() bool {
	return s.leader
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
