// Package schedule drives the cycle runner on a fixed wall-clock interval.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ochse/webwatch/internal/worker"
)

// DefaultInterval is the wall-clock period between batch passes.
const DefaultInterval = 15 * time.Minute

// Trigger drives batch passes; satisfied by *worker.Runner.
type Trigger interface {
	RunOnce(ctx context.Context, trigger string) (worker.Summary, error)
}

// Scheduler fires one batch per interval tick. The interval is fixed at
// Start and never rescheduled mid-run. A tick that lands while a batch is
// still in flight is skipped — the runner's batch lock rejects it and the
// scheduler does not defer the work.
type Scheduler struct {
	runner   Trigger
	interval time.Duration
	logger   *slog.Logger

	cron    *cron.Cron
	started bool
}

func New(runner Trigger, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start launches the periodic trigger. Call Stop to cancel.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.started {
		return errors.New("scheduler already started")
	}
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.runner.RunOnce(ctx, "interval"); err != nil {
		if errors.Is(err, worker.ErrBatchInProgress) {
			s.logger.Debug("tick skipped, batch still running")
			return
		}
		s.logger.Error("scheduled batch failed", "error", err)
	}
}

// Stop cancels the periodic trigger. An in-flight batch finishes on its own.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	s.logger.Info("scheduler stopped")
}
