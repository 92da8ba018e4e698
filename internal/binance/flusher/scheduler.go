package flusher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a job on a fixed interval. Runs never overlap: while one is
// in progress at most one further run is queued, extra ticks are dropped.
type Scheduler struct {
	interval time.Duration
	job      func(ctx context.Context)
	logger   *zap.Logger

	pending chan struct{}
}

func NewScheduler(interval time.Duration, job func(ctx context.Context), logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		logger:   logger.Named("scheduler"),
		pending:  make(chan struct{}, 1),
	}
}

// Trigger queues a run unless one is already pending. It reports whether a
// run was queued.
func (s *Scheduler) Trigger() bool {
	select {
	case s.pending <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is cancelled. The first run happens one interval after
// start. A job in progress when ctx is cancelled is allowed to finish; queued
// runs are discarded.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.work(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			<-done
			return
		case <-ticker.C:
			if !s.Trigger() {
				s.logger.Warn("previous run still in progress, tick skipped")
			}
		}
	}
}

func (s *Scheduler) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked", zap.Any("panic", r))
		}
	}()
	s.job(ctx)
}
