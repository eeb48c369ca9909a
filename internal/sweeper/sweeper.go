// Package sweeper runs the periodic idle-session sweep.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is the slice of the lifecycle layer the sweeper drives. The
// sweeper is just another concurrent store caller; it holds no privileged
// access and relies on the store's atomic close semantics.
type Runner interface {
	RunIdleSweep(ctx context.Context) (int, error)
}

// Sweeper schedules idle sweeps at a fixed interval.
type Sweeper struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a Sweeper running every interval. interval <= 0 defaults to
// 5 minutes.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		runner:   runner,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
	}
}

// Start schedules the sweep. The provided context bounds every run; cancel
// it before calling Stop on shutdown.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("idle sweeper started", "interval", s.interval.String())
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("idle sweeper stopped")
}

// RunOnce performs a single sweep. Exposed for one-shot invocation and
// tests; the schedule calls it on every tick.
func (s *Sweeper) RunOnce(ctx context.Context) {
	closed, err := s.runner.RunIdleSweep(ctx)
	if err != nil {
		s.logger.Error("idle sweep failed", "error", err)
		return
	}
	if closed > 0 {
		s.logger.Info("idle sweep finished", "closed", closed)
	}
}
