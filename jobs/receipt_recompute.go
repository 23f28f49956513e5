package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/lodestar-freight/lodestar/internal/allocation"
	"github.com/lodestar-freight/lodestar/internal/receipt"
)

// ReceiptStatusService is the slice of the receipt service the job needs.
type ReceiptStatusService interface {
	RecomputeAndPersist(ctx context.Context, receiptID int64) (receipt.Status, error)
}

// ReceiptRecomputeJob consumes recompute tasks and persists the derived
// status. The allocation engine never does this itself; the trigger stays
// outside the per-operation transaction.
type ReceiptRecomputeJob struct {
	service ReceiptStatusService
	logger  *slog.Logger
	metrics *Metrics
}

// NewReceiptRecomputeJob constructs the job handler. metrics may be nil.
func NewReceiptRecomputeJob(service ReceiptStatusService, logger *slog.Logger, metrics *Metrics) *ReceiptRecomputeJob {
	return &ReceiptRecomputeJob{service: service, logger: logger, metrics: metrics}
}

// Handle processes one TaskReceiptStatusRecompute task.
func (j *ReceiptRecomputeJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskReceiptStatusRecompute)
	var payload ReceiptStatusRecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	status, err := j.service.RecomputeAndPersist(ctx, payload.ReceiptID)
	if err = tracker.End(err); err != nil {
		j.logger.Error("receipt recompute failed",
			slog.Int64("receipt_id", payload.ReceiptID), slog.Any("error", err))
		return err
	}
	j.logger.Info("receipt status recomputed",
		slog.Int64("receipt_id", payload.ReceiptID), slog.String("status", string(status)))
	return nil
}

// ShippedEnqueuer enqueues a recompute task whenever an allocation ships.
// It implements allocation.IntegrationHandler.
type ShippedEnqueuer struct {
	client *Client
}

// NewShippedEnqueuer constructs the enqueuer.
func NewShippedEnqueuer(client *Client) *ShippedEnqueuer {
	return &ShippedEnqueuer{client: client}
}

// HandleAllocationShipped submits the recompute job for the owning receipt.
func (e *ShippedEnqueuer) HandleAllocationShipped(ctx context.Context, evt allocation.AllocationShippedEvent) error {
	_, err := e.client.EnqueueReceiptStatusRecompute(ctx, ReceiptStatusRecomputePayload{ReceiptID: evt.ReceiptID})
	return err
}
