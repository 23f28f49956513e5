package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/lodestar-freight/lodestar/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAllocation(ctx context.Context, id int64) (Allocation, error)
	ListByShipment(ctx context.Context, shipmentID int64) ([]Allocation, error)
	ListMovements(ctx context.Context, inventoryItemID int64) ([]Movement, error)
}

// MasterDataPort resolves read-only master data used for referential checks.
type MasterDataPort interface {
	// ContainerShipment returns the shipment a container belongs to.
	// found is false when the container does not exist.
	ContainerShipment(ctx context.Context, containerID int64) (shipmentID int64, found bool, err error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PostCommitError marks a failure that happened after the operation's
// transaction committed. The state change is durable; only a follow-up step
// such as event delivery failed, so callers must not retry the mutation.
type PostCommitError struct {
	Err error
}

func (e *PostCommitError) Error() string { return e.Err.Error() }

func (e *PostCommitError) Unwrap() error { return e.Err }

// Service orchestrates the allocation lifecycle. Every mutating operation
// runs in one transaction that locks the rows it will change before reading
// the values it bases its decision on. Lock order is Allocation first, then
// InventoryItem; Create locks only the item.
type Service struct {
	repo        RepositoryPort
	masterdata  MasterDataPort
	audit       AuditPort
	integration IntegrationHandler
}

// NewService builds Service. audit and integration may be nil.
func NewService(repo RepositoryPort, masterdata MasterDataPort, audit AuditPort, integration IntegrationHandler) *Service {
	return &Service{repo: repo, masterdata: masterdata, audit: audit, integration: integration}
}

// CreateInput describes a reservation request.
type CreateInput struct {
	InventoryItemID int64
	ShipmentID      int64
	ContainerID     *int64
	AllocatedQty    int64
}

// Create reserves AllocatedQty of an inventory item against a shipment.
// Allocation is a reservation, not a withdrawal; no stock is mutated.
func (s *Service) Create(ctx context.Context, input CreateInput) (Allocation, error) {
	var created Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetInventoryItemForUpdate(ctx, input.InventoryItemID)
		if err != nil {
			return err
		}
		reserved, err := tx.SumReservedQty(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := CanAllocate(input.AllocatedQty, item.CurrentQty, reserved); err != nil {
			return err
		}
		if input.ContainerID != nil {
			if err := s.checkContainer(ctx, *input.ContainerID, input.ShipmentID); err != nil {
				return err
			}
		}
		created, err = tx.InsertAllocation(ctx, Allocation{
			InventoryItemID: item.ID,
			ShipmentID:      input.ShipmentID,
			ContainerID:     input.ContainerID,
			AllocatedQty:    input.AllocatedQty,
			Status:          StatusAllocated,
		})
		return err
	})
	if err != nil {
		return Allocation{}, err
	}
	s.recordAudit(ctx, "allocation:create", created.ID, map[string]any{
		"inventory_item_id": created.InventoryItemID,
		"shipment_id":       created.ShipmentID,
		"allocated_qty":     created.AllocatedQty,
	})
	return created, nil
}

// Pick records the cumulative picked quantity for an allocation.
func (s *Service) Pick(ctx context.Context, allocationID, pickedQty int64) (Allocation, error) {
	var updated Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if err := CanPick(a, pickedQty); err != nil {
			return err
		}
		a.PickedQty = pickedQty
		a.Status = NextStatusAfterPick(a.Status, pickedQty)
		if err := tx.UpdateAllocation(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}
	s.recordAudit(ctx, "allocation:pick", updated.ID, map[string]any{"picked_qty": pickedQty})
	return updated, nil
}

// Load records the cumulative loaded quantity. A container may be assigned
// for the first time here; it must belong to the allocation's shipment.
func (s *Service) Load(ctx context.Context, allocationID, loadedQty int64, containerID *int64) (Allocation, error) {
	var updated Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if containerID != nil {
			if err := s.checkContainer(ctx, *containerID, a.ShipmentID); err != nil {
				return err
			}
			a.ContainerID = containerID
		}
		if err := CanLoad(a, loadedQty); err != nil {
			return err
		}
		a.LoadedQty = loadedQty
		a.Status = NextStatusAfterLoad(a.Status, loadedQty)
		if err := tx.UpdateAllocation(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}
	s.recordAudit(ctx, "allocation:load", updated.ID, map[string]any{"loaded_qty": loadedQty})
	return updated, nil
}

// Ship confirms physical departure. In one transaction it marks the
// allocation SHIPPED, appends a movement record and decrements the item's
// current quantity. This is the only operation that mutates physical stock.
func (s *Service) Ship(ctx context.Context, allocationID, shippedQty int64) (Allocation, error) {
	var (
		updated Allocation
		item    InventoryItem
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if err := CanShip(a, shippedQty); err != nil {
			return err
		}
		// Allocation row is already held; item second keeps the global
		// lock order compatible with Create.
		item, err = tx.GetInventoryItemForUpdate(ctx, a.InventoryItemID)
		if err != nil {
			return err
		}
		if item.CurrentQty < shippedQty {
			return ErrInsufficientInventory.WithDetails(map[string]any{
				"shipped_qty": shippedQty,
				"current_qty": item.CurrentQty,
			})
		}
		a.ShippedQty = shippedQty
		a.Status = StatusShipped
		if err := tx.UpdateAllocation(ctx, a); err != nil {
			return err
		}
		if _, err := tx.InsertMovement(ctx, Movement{
			InventoryItemID: item.ID,
			RefType:         MovementRefShip,
			RefID:           a.ID,
			QtyDelta:        -shippedQty,
		}); err != nil {
			return err
		}
		if err := tx.DecrementItemCurrentQty(ctx, item.ID, shippedQty); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}
	s.recordAudit(ctx, "allocation:ship", updated.ID, map[string]any{
		"shipped_qty":       shippedQty,
		"inventory_item_id": updated.InventoryItemID,
	})
	if s.integration != nil {
		evt := AllocationShippedEvent{
			AllocationID:    updated.ID,
			InventoryItemID: updated.InventoryItemID,
			ReceiptID:       item.ReceiptID,
			ShipmentID:      updated.ShipmentID,
			ShippedQty:      shippedQty,
			OccurredAt:      time.Now().UTC(),
		}
		if err := s.integration.HandleAllocationShipped(ctx, evt); err != nil {
			return updated, &PostCommitError{Err: fmt.Errorf("allocation: shipped integration: %w", err)}
		}
	}
	return updated, nil
}

// Cancel releases a reservation. No quantity rollback is needed because
// cancellation never applies after a ship and allocation never decremented
// stock.
func (s *Service) Cancel(ctx context.Context, allocationID int64) (Allocation, error) {
	var updated Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if err := CanCancel(a); err != nil {
			return err
		}
		a.Status = StatusCancelled
		if err := tx.UpdateAllocation(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}
	s.recordAudit(ctx, "allocation:cancel", updated.ID, nil)
	return updated, nil
}

// Split carves splitQty off an untouched ALLOCATED reservation into a new
// allocation, optionally on a different container of the same shipment.
func (s *Service) Split(ctx context.Context, allocationID, splitQty int64, newContainerID *int64) (Allocation, Allocation, error) {
	var original, created Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAllocationForUpdate(ctx, allocationID)
		if err != nil {
			return err
		}
		if err := CanSplit(a, splitQty); err != nil {
			return err
		}
		if newContainerID != nil {
			if err := s.checkContainer(ctx, *newContainerID, a.ShipmentID); err != nil {
				return err
			}
		}
		a.AllocatedQty -= splitQty
		if err := tx.UpdateAllocation(ctx, a); err != nil {
			return err
		}
		containerID := a.ContainerID
		if newContainerID != nil {
			containerID = newContainerID
		}
		created, err = tx.InsertAllocation(ctx, Allocation{
			InventoryItemID: a.InventoryItemID,
			ShipmentID:      a.ShipmentID,
			ContainerID:     containerID,
			AllocatedQty:    splitQty,
			Status:          StatusAllocated,
		})
		if err != nil {
			return err
		}
		original = a
		return nil
	})
	if err != nil {
		return Allocation{}, Allocation{}, err
	}
	s.recordAudit(ctx, "allocation:split", original.ID, map[string]any{
		"split_qty":         splitQty,
		"new_allocation_id": created.ID,
	})
	return original, created, nil
}

// Get loads one allocation.
func (s *Service) Get(ctx context.Context, allocationID int64) (Allocation, error) {
	return s.repo.GetAllocation(ctx, allocationID)
}

// ListByShipment returns the shipment's manifest.
func (s *Service) ListByShipment(ctx context.Context, shipmentID int64) ([]Allocation, error) {
	return s.repo.ListByShipment(ctx, shipmentID)
}

// ListMovements returns the movement trail for an inventory item.
func (s *Service) ListMovements(ctx context.Context, inventoryItemID int64) ([]Movement, error) {
	return s.repo.ListMovements(ctx, inventoryItemID)
}

func (s *Service) checkContainer(ctx context.Context, containerID, shipmentID int64) error {
	if s.masterdata == nil {
		return nil
	}
	owner, found, err := s.masterdata.ContainerShipment(ctx, containerID)
	if err != nil {
		return err
	}
	if !found {
		return ErrContainerNotFound.WithDetails(map[string]any{
			"container_id": containerID,
		})
	}
	if owner != shipmentID {
		return ErrContainerShipmentMismatch.WithDetails(map[string]any{
			"container_id":          containerID,
			"shipment_id":           shipmentID,
			"container_shipment_id": owner,
		})
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, allocationID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "inventory_allocation",
		EntityID: fmt.Sprintf("%d", allocationID),
		Meta:     meta,
	})
}
