package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Syncer runs one sync pass over every active integration.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		logger:   logger,
	}
}

// Start runs a pass immediately and then once per interval until ctx is done.
// A pass that outlasts the interval delays the next tick instead of overlapping it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	started := time.Now()
	if err := s.syncer.SyncAll(ctx); err != nil {
		s.logger.Error("scheduled sync finished with errors", "error", err, "duration", time.Since(started))
		return
	}
	s.logger.Info("scheduled sync finished", "duration", time.Since(started))
}
