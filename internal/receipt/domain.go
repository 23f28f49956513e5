package receipt

import "github.com/lodestar-freight/lodestar/internal/shared"

// Status summarises a warehouse receipt from the state of its items. It is a
// derived projection persisted on the receipt row, never edited directly.
type Status string

const (
	// StatusReceived means no stock has shipped (or the receipt is empty).
	StatusReceived Status = "RECEIVED"
	// StatusPartial means some but not all stock has shipped.
	StatusPartial Status = "PARTIAL"
	// StatusShipped means every item is fully consumed.
	StatusShipped Status = "SHIPPED"
)

// ItemQuantities is the projection of one inventory item the aggregation
// rule needs.
type ItemQuantities struct {
	InitialQty int64
	CurrentQty int64
}

// Stats aggregates the read-side totals for a receipt.
type Stats struct {
	ReceiptID       int64   `json:"receipt_id"`
	ItemCount       int64   `json:"item_count"`
	TotalInitialQty int64   `json:"total_initial_qty"`
	TotalCurrentQty int64   `json:"total_current_qty"`
	TotalWeight     float64 `json:"total_weight"`
}

// ErrReceiptNotFound indicates a missing receipt row.
var ErrReceiptNotFound = shared.NewError("RECEIPT_NOT_FOUND", "warehouse receipt not found")
