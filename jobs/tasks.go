package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReceiptStatusRecompute recomputes one receipt's summary status.
	TaskReceiptStatusRecompute = "receipt:recompute_status"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReceiptStatusRecomputePayload identifies the receipt to recompute.
type ReceiptStatusRecomputePayload struct {
	ReceiptID int64 `json:"receipt_id"`
}

// NewReceiptStatusRecomputeTask constructs an Asynq task.
func NewReceiptStatusRecomputeTask(payload ReceiptStatusRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptStatusRecompute, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
