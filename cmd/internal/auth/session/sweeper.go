package session

import (
	"context"
	"log/slog"
	"time"

	"promodesk/cmd/internal/metrics"
)

// Sweeper deletes expired token records on a fixed interval, independent of
// request handling. It is maintenance, not a correctness mechanism: lookups
// always recheck expires_at, so a skipped or delayed sweep is harmless.
type Sweeper struct {
	store    Store
	log      *slog.Logger
	interval time.Duration
}

// NewSweeper constructs a Sweeper with the given cadence.
func NewSweeper(store Store, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{store: store, log: log, interval: interval}
}

// Run blocks until ctx is done, sweeping once per interval. Sweep failures
// are logged and retried on the next tick; they never escalate.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	deleted, err := s.store.SweepExpired(ctx, now)
	if err != nil {
		metrics.SweepFailuresTotal.Inc()
		s.log.Error("auth.sweep.fail", "err", err)
		return
	}

	metrics.SweepDeletedTotal.Add(float64(deleted))
	if deleted > 0 {
		s.log.Info("auth.sweep.run", "deleted", deleted)
	}
}
