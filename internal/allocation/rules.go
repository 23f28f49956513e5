package allocation

// Pure decision functions for the allocation lifecycle. Each check validates
// a proposed transition against the current persisted snapshot and fails with
// the first violated invariant; none of them touch storage. The orchestrating
// service supplies caller-computed aggregates such as the reserved quantity.

// CanAllocate checks whether requestedQty can be reserved against an item
// whose current stock is itemCurrentQty with itemReservedQty already reserved
// by non-terminal allocations.
func CanAllocate(requestedQty, itemCurrentQty, itemReservedQty int64) error {
	if requestedQty <= 0 {
		return ErrInvalidQuantity.WithDetails(map[string]any{
			"requested_qty": requestedQty,
		})
	}
	if itemCurrentQty-itemReservedQty < requestedQty {
		return ErrInsufficientInventory.WithDetails(map[string]any{
			"requested_qty": requestedQty,
			"current_qty":   itemCurrentQty,
			"reserved_qty":  itemReservedQty,
			"available_qty": itemCurrentQty - itemReservedQty,
		})
	}
	return nil
}

// CanPick checks whether the allocation may record newPickedQty.
func CanPick(a Allocation, newPickedQty int64) error {
	if a.Status != StatusAllocated && a.Status != StatusPicked {
		return ErrInvalidState.WithDetails(map[string]any{
			"status":    a.Status,
			"operation": "pick",
		})
	}
	if newPickedQty > a.AllocatedQty {
		return ErrPickExceedsAllocated.WithDetails(map[string]any{
			"picked_qty":    newPickedQty,
			"allocated_qty": a.AllocatedQty,
		})
	}
	if newPickedQty < a.PickedQty {
		return ErrQuantityMustBeMonotonic.WithDetails(map[string]any{
			"picked_qty":          newPickedQty,
			"recorded_picked_qty": a.PickedQty,
		})
	}
	return nil
}

// NextStatusAfterPick returns the status after recording newPickedQty.
func NextStatusAfterPick(current Status, newPickedQty int64) Status {
	if newPickedQty > 0 {
		return StatusPicked
	}
	return current
}

// CanLoad checks whether the allocation may record newLoadedQty. The caller
// must have resolved container adoption first; the check only sees whether a
// container is assigned on the snapshot.
func CanLoad(a Allocation, newLoadedQty int64) error {
	if a.Status != StatusPicked && a.Status != StatusLoaded {
		return ErrInvalidState.WithDetails(map[string]any{
			"status":    a.Status,
			"operation": "load",
		})
	}
	if !a.HasContainer() {
		return ErrContainerRequired.WithDetails(map[string]any{
			"allocation_id": a.ID,
		})
	}
	if newLoadedQty > a.PickedQty {
		return ErrLoadExceedsPicked.WithDetails(map[string]any{
			"loaded_qty": newLoadedQty,
			"picked_qty": a.PickedQty,
		})
	}
	if newLoadedQty > a.AllocatedQty {
		return ErrLoadExceedsAllocated.WithDetails(map[string]any{
			"loaded_qty":    newLoadedQty,
			"allocated_qty": a.AllocatedQty,
		})
	}
	if newLoadedQty < a.LoadedQty {
		return ErrQuantityMustBeMonotonic.WithDetails(map[string]any{
			"loaded_qty":          newLoadedQty,
			"recorded_loaded_qty": a.LoadedQty,
		})
	}
	return nil
}

// NextStatusAfterLoad returns the status after recording newLoadedQty.
func NextStatusAfterLoad(current Status, newLoadedQty int64) Status {
	if newLoadedQty > 0 {
		return StatusLoaded
	}
	return current
}

// CanShip checks whether the allocation may ship newShippedQty. Shipping is
// only legal once the allocation has fully transitioned into LOADED.
func CanShip(a Allocation, newShippedQty int64) error {
	if a.Status != StatusLoaded {
		return ErrInvalidState.WithDetails(map[string]any{
			"status":    a.Status,
			"operation": "ship",
		})
	}
	if newShippedQty > a.LoadedQty {
		return ErrShipExceedsLoaded.WithDetails(map[string]any{
			"shipped_qty": newShippedQty,
			"loaded_qty":  a.LoadedQty,
		})
	}
	if newShippedQty < a.ShippedQty {
		return ErrQuantityMustBeMonotonic.WithDetails(map[string]any{
			"shipped_qty":          newShippedQty,
			"recorded_shipped_qty": a.ShippedQty,
		})
	}
	if newShippedQty <= 0 {
		return ErrInvalidQuantity.WithDetails(map[string]any{
			"shipped_qty": newShippedQty,
		})
	}
	return nil
}

// CanCancel checks whether the allocation may be cancelled. The shipped
// quantity guard is unreachable while the status guard holds, but cancellation
// must never be permitted once any quantity has physically left.
func CanCancel(a Allocation) error {
	if a.Status != StatusAllocated && a.Status != StatusPicked && a.Status != StatusLoaded {
		return ErrInvalidState.WithDetails(map[string]any{
			"status":    a.Status,
			"operation": "cancel",
		})
	}
	if a.ShippedQty > 0 {
		return ErrAlreadyShipped.WithDetails(map[string]any{
			"shipped_qty": a.ShippedQty,
		})
	}
	return nil
}

// CanSplit checks whether splitQty can be carved off the allocation into a
// new one. Split must leave a strictly positive remainder on the original.
func CanSplit(a Allocation, splitQty int64) error {
	if a.Status != StatusAllocated {
		return ErrInvalidState.WithDetails(map[string]any{
			"status":    a.Status,
			"operation": "split",
		})
	}
	if a.PickedQty != 0 || a.LoadedQty != 0 || a.ShippedQty != 0 {
		return ErrCannotSplitAfterProgress.WithDetails(map[string]any{
			"picked_qty":  a.PickedQty,
			"loaded_qty":  a.LoadedQty,
			"shipped_qty": a.ShippedQty,
		})
	}
	if splitQty <= 0 {
		return ErrInvalidQuantity.WithDetails(map[string]any{
			"split_qty": splitQty,
		})
	}
	if splitQty >= a.AllocatedQty {
		return ErrSplitExceedsAllocated.WithDetails(map[string]any{
			"split_qty":     splitQty,
			"allocated_qty": a.AllocatedQty,
		})
	}
	return nil
}
