package booking

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Clock lets tests drive the worker with a fixed time source.
type Clock func() time.Time

// StatusWorker periodically advances bookings whose session window has
// started or elapsed: SCHEDULED -> ONGOING once scheduled_at passes,
// ONGOING -> COMPLETED once the session duration is over.
type StatusWorker struct {
	repo     Repository
	interval time.Duration
	logger   *zap.Logger
	now      Clock
}

func NewStatusWorker(repo Repository, interval time.Duration, logger *zap.Logger) *StatusWorker {
	return &StatusWorker{
		repo:     repo,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (w *StatusWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session status worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session status worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one pass. Exported so tests and one-shot jobs can call it directly.
func (w *StatusWorker) Tick(ctx context.Context) {
	now := w.now()

	started, err := w.repo.StartDue(ctx, now)
	if err != nil {
		w.logger.Error("start due sessions failed", zap.Error(err))
	} else if started > 0 {
		w.logger.Info("sessions started", zap.Int64("count", started))
	}

	completed, err := w.repo.CompleteDue(ctx, now)
	if err != nil {
		w.logger.Error("complete due sessions failed", zap.Error(err))
	} else if completed > 0 {
		w.logger.Info("sessions completed", zap.Int64("count", completed))
	}
}
