package allocation

import (
	"time"

	"github.com/lodestar-freight/lodestar/internal/shared"
)

// Status enumerates the allocation lifecycle.
type Status string

const (
	// StatusAllocated is the initial state after a reservation is created.
	StatusAllocated Status = "ALLOCATED"
	// StatusPicked indicates a non-zero picked quantity has been recorded.
	StatusPicked Status = "PICKED"
	// StatusLoaded indicates a non-zero quantity is loaded into a container.
	StatusLoaded Status = "LOADED"
	// StatusShipped is terminal; stock has physically left the warehouse.
	StatusShipped Status = "SHIPPED"
	// StatusCancelled is terminal; the reservation was released.
	StatusCancelled Status = "CANCELLED"
)

// IsValid reports whether s is a known lifecycle status.
func (s Status) IsValid() bool {
	switch s {
	case StatusAllocated, StatusPicked, StatusLoaded, StatusShipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further mutating operation may succeed.
func (s Status) IsTerminal() bool {
	return s == StatusShipped || s == StatusCancelled
}

// Reserves reports whether an allocation in this status still counts against
// its item's available quantity.
func (s Status) Reserves() bool {
	switch s {
	case StatusAllocated, StatusPicked, StatusLoaded:
		return true
	default:
		return false
	}
}

// Allocation reserves a quantity of one inventory item against one shipment,
// optionally pinned to a container. Progress counters are monotonically
// non-decreasing and ordered: shipped <= loaded <= picked <= allocated.
type Allocation struct {
	ID              int64      `json:"id"`
	InventoryItemID int64      `json:"inventory_item_id"`
	ShipmentID      int64      `json:"shipment_id"`
	ContainerID     *int64     `json:"container_id,omitempty"`
	AllocatedQty    int64      `json:"allocated_qty"`
	PickedQty       int64      `json:"picked_qty"`
	LoadedQty       int64      `json:"loaded_qty"`
	ShippedQty      int64      `json:"shipped_qty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasContainer reports whether a container is assigned.
func (a Allocation) HasContainer() bool {
	return a.ContainerID != nil && *a.ContainerID != 0
}

// MovementRefType tags the operation that produced a movement.
type MovementRefType string

// MovementRefShip marks movements written by the ship operation, the only
// operation that consumes physical stock.
const MovementRefShip MovementRefType = "SHIP"

// Movement is an append-only audit record of a quantity change against an
// inventory item.
type Movement struct {
	ID              int64           `json:"id"`
	InventoryItemID int64           `json:"inventory_item_id"`
	RefType         MovementRefType `json:"ref_type"`
	RefID           int64           `json:"ref_id"`
	QtyDelta        int64           `json:"qty_delta"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Error codes surfaced by the allocation engine.
const (
	CodeInvalidQuantity           shared.ErrorCode = "INVALID_QUANTITY"
	CodeInsufficientInventory     shared.ErrorCode = "INSUFFICIENT_INVENTORY"
	CodeInvalidState              shared.ErrorCode = "INVALID_STATE"
	CodePickExceedsAllocated      shared.ErrorCode = "PICK_EXCEEDS_ALLOCATED"
	CodeLoadExceedsPicked         shared.ErrorCode = "LOAD_EXCEEDS_PICKED"
	CodeLoadExceedsAllocated      shared.ErrorCode = "LOAD_EXCEEDS_ALLOCATED"
	CodeShipExceedsLoaded         shared.ErrorCode = "SHIP_EXCEEDS_LOADED"
	CodeSplitExceedsAllocated     shared.ErrorCode = "SPLIT_EXCEEDS_ALLOCATED"
	CodeQuantityMustBeMonotonic   shared.ErrorCode = "QUANTITY_MUST_BE_MONOTONIC"
	CodeContainerRequired         shared.ErrorCode = "CONTAINER_REQUIRED"
	CodeContainerNotFound         shared.ErrorCode = "CONTAINER_NOT_FOUND"
	CodeContainerShipmentMismatch shared.ErrorCode = "CONTAINER_SHIPMENT_MISMATCH"
	CodeAlreadyShipped            shared.ErrorCode = "ALREADY_SHIPPED"
	CodeCannotSplitAfterProgress  shared.ErrorCode = "CANNOT_SPLIT_AFTER_PROGRESS"
	CodeInventoryItemNotFound     shared.ErrorCode = "INVENTORY_ITEM_NOT_FOUND"
	CodeAllocationNotFound        shared.ErrorCode = "ALLOCATION_NOT_FOUND"
)

// Sentinel errors for the taxonomy above. Checks in rules.go return copies
// carrying a details payload; errors.Is against these still matches.
var (
	ErrInvalidQuantity           = shared.NewError(CodeInvalidQuantity, "quantity must be a positive integer")
	ErrInsufficientInventory     = shared.NewError(CodeInsufficientInventory, "requested quantity exceeds available stock")
	ErrInvalidState              = shared.NewError(CodeInvalidState, "operation not allowed in current status")
	ErrPickExceedsAllocated      = shared.NewError(CodePickExceedsAllocated, "picked quantity exceeds allocated quantity")
	ErrLoadExceedsPicked         = shared.NewError(CodeLoadExceedsPicked, "loaded quantity exceeds picked quantity")
	ErrLoadExceedsAllocated      = shared.NewError(CodeLoadExceedsAllocated, "loaded quantity exceeds allocated quantity")
	ErrShipExceedsLoaded         = shared.NewError(CodeShipExceedsLoaded, "shipped quantity exceeds loaded quantity")
	ErrSplitExceedsAllocated     = shared.NewError(CodeSplitExceedsAllocated, "split quantity must leave a positive remainder")
	ErrQuantityMustBeMonotonic   = shared.NewError(CodeQuantityMustBeMonotonic, "progress quantities can never decrease")
	ErrContainerRequired         = shared.NewError(CodeContainerRequired, "loading requires an assigned container")
	ErrContainerNotFound         = shared.NewError(CodeContainerNotFound, "container not found")
	ErrContainerShipmentMismatch = shared.NewError(CodeContainerShipmentMismatch, "container belongs to a different shipment")
	ErrAlreadyShipped            = shared.NewError(CodeAlreadyShipped, "cannot cancel after stock has shipped")
	ErrCannotSplitAfterProgress  = shared.NewError(CodeCannotSplitAfterProgress, "cannot split after pick, load or ship progress")
	ErrInventoryItemNotFound     = shared.NewError(CodeInventoryItemNotFound, "inventory item not found")
	ErrAllocationNotFound        = shared.NewError(CodeAllocationNotFound, "allocation not found")
)
