package reservation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper expires overdue PENDING intents and returns their capacity
// holds. It is the safety net behind the hold TTL: a student who never
// completes checkout stops blocking the seat once the sweeper passes.
type Sweeper struct {
	repo     Repository
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(repo Repository, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reservation sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Exported so tests and one-shot jobs can call it.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		s.logger.Error("expire due reservations failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("reservation holds expired", zap.Int64("count", expired))
	}
}
