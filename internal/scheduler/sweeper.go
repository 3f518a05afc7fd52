// Package scheduler drives the periodic expiry sweep of pencil holds.
package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/cimillas/event-lifecycle/internal/domain"
)

// Expirer expires every pending hold whose deadline is at or before now.
type Expirer interface {
	ExpireStaleHolds(ctx context.Context, now time.Time) ([]domain.PencilHold, error)
}

const DefaultInterval = time.Minute

// Sweeper calls an Expirer on a fixed interval. Ticks are independent: a
// skipped or late tick only delays expiry until the next one, because which
// holds expire depends on their stored deadlines, not on tick cadence.
type Sweeper struct {
	expirer  Expirer
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(expirer Expirer, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{
		expirer:  expirer,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps immediately and then once per interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("hold sweeper started", "interval", s.interval)
	_, _ = s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("hold sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass bounded by the interval. A pass that runs out of time
// keeps what it committed; the rest is picked up by the next pass. The
// holds committed before a failure are returned alongside the error.
func (s *Sweeper) Sweep(ctx context.Context) ([]domain.PencilHold, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	now := s.clock.Now()
	start := time.Now()
	expired, err := s.expirer.ExpireStaleHolds(sweepCtx, now)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("hold sweep ran out of time", "expired", len(expired))
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error("hold sweep failed", "expired", len(expired), "error", err)
	}

	if len(expired) > 0 {
		s.logger.Info("expired stale holds", "count", len(expired), "as_of", now, "duration", time.Since(start))
	}
	for _, hold := range expired {
		s.logger.Debug("hold expired", "hold_id", hold.ID, "event_id", hold.EventID, "expires_at", hold.ExpiresAt)
	}
	return expired, err
}
