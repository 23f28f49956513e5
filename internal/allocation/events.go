package allocation

import (
	"context"
	"time"
)

// AllocationShippedEvent is published after a ship transaction commits.
type AllocationShippedEvent struct {
	AllocationID    int64
	InventoryItemID int64
	ReceiptID       int64
	ShipmentID      int64
	ShippedQty      int64
	OccurredAt      time.Time
}

// IntegrationHandler receives engine events after commit. The surrounding
// workflow uses it to trigger receipt status recomputation; the engine itself
// never mutates receipt status.
type IntegrationHandler interface {
	HandleAllocationShipped(ctx context.Context, evt AllocationShippedEvent) error
}
