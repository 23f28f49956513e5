package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// IdempotencyCleaner is the slice of the idempotency store the job needs.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob prunes processed request keys past retention.
type IdempotencyCleanupJob struct {
	store     IdempotencyCleaner
	retention time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

// NewIdempotencyCleanupJob constructs the job handler. metrics may be nil.
func NewIdempotencyCleanupJob(store IdempotencyCleaner, retention time.Duration, logger *slog.Logger, metrics *Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &IdempotencyCleanupJob{store: store, retention: retention, logger: logger, metrics: metrics}
}

// Handle processes one TaskIdempotencyCleanup task.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskIdempotencyCleanup)
	if err := tracker.End(j.store.Cleanup(ctx, j.retention)); err != nil {
		j.logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	return nil
}
