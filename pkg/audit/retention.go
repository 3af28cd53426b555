package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes entries created before a cutoff. workflow.ActivityStore
// implements it.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionWorker periodically removes activity log entries older than the
// retention window.
type RetentionWorker struct {
	store     Pruner
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRetentionWorker creates a worker that sweeps every interval. A zero
// retention disables it.
func NewRetentionWorker(store Pruner, retention, interval time.Duration, logger *zap.Logger) *RetentionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionWorker{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.Named("retention"),
		now:       time.Now,
	}
}

// Run sweeps once at startup and then on every tick until ctx is done.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.store == nil || w.retention <= 0 {
		w.logger.Info("activity retention disabled", zap.Duration("retention", w.retention))
		return
	}

	w.logger.Info("activity retention started",
		zap.Duration("retention", w.retention),
		zap.Duration("interval", w.interval))

	w.Sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("activity retention stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep performs a single retention pass and returns the number of entries
// removed.
func (w *RetentionWorker) Sweep(ctx context.Context) int64 {
	cutoff := w.now().Add(-w.retention)
	deleted, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("activity retention sweep failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		w.logger.Info("activity retention sweep completed",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted
}
