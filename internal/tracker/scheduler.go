package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Runner runs one update cycle.
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

// Scheduler triggers the update cycle once a day at a fixed UTC time. It
// serializes its own invocations with a skip-if-running guard; the cycle
// itself does not prevent concurrent callers.
type Scheduler struct {
	runner  Runner
	hour    int
	minute  int
	clock   Clock
	logger  *zap.Logger
	running atomic.Bool
}

// NewScheduler creates a Scheduler firing daily at hour:minute UTC.
func NewScheduler(runner Runner, hour, minute int, clock Clock, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner: runner,
		hour:   hour,
		minute: minute,
		clock:  clock,
		logger: logger,
	}
}

// Run blocks, firing the cycle at each scheduled time until the context
// finishes.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := s.clock.Now().UTC()
		next := s.nextRun(now)
		timer := time.NewTimer(next.Sub(now))
		s.logger.Info("next scheduled ranking update", zap.Time("at", next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.TryRun(ctx)
		}
	}
}

// TryRun runs one cycle unless another triggered by this scheduler is
// still in flight, in which case it skips.
func (s *Scheduler) TryRun(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("update cycle still running, skipping scheduled run")
		return
	}
	defer s.running.Store(false)

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("scheduled update cycle failed", zap.Error(err))
	}
}

// nextRun returns the next hour:minute UTC instant strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
