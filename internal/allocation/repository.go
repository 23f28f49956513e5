package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryItem is the slice of an item row the engine needs for quantity
// accounting. CurrentQty only ever decreases, and only through Ship.
type InventoryItem struct {
	ID         int64 `json:"id"`
	ReceiptID  int64 `json:"receipt_id"`
	InitialQty int64 `json:"initial_qty"`
	CurrentQty int64 `json:"current_qty"`
}

// Repository persists allocations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. Every
// *ForUpdate read takes an exclusive row lock held until commit or rollback.
type TxRepository interface {
	GetAllocationForUpdate(ctx context.Context, id int64) (Allocation, error)
	GetInventoryItemForUpdate(ctx context.Context, id int64) (InventoryItem, error)
	SumReservedQty(ctx context.Context, inventoryItemID int64) (int64, error)
	InsertAllocation(ctx context.Context, a Allocation) (Allocation, error)
	UpdateAllocation(ctx context.Context, a Allocation) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	DecrementItemCurrentQty(ctx context.Context, itemID, by int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction. Row
// locks acquired by the callback are released on every exit path; the
// deferred rollback also covers panics unwinding out of the callback.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("allocation repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	return runInTx(ctx, tx, fn)
}

func runInTx(ctx context.Context, tx pgx.Tx, fn func(context.Context, TxRepository) error) error {
	defer tx.Rollback(ctx)

	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const allocationColumns = `id, inventory_item_id, shipment_id, container_id, allocated_qty, picked_qty, loaded_qty, shipped_qty, status, created_at, updated_at`

func scanAllocation(row pgx.Row) (Allocation, error) {
	var a Allocation
	err := row.Scan(&a.ID, &a.InventoryItemID, &a.ShipmentID, &a.ContainerID,
		&a.AllocatedQty, &a.PickedQty, &a.LoadedQty, &a.ShippedQty,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetAllocation loads one allocation without locking.
func (r *Repository) GetAllocation(ctx context.Context, id int64) (Allocation, error) {
	a, err := scanAllocation(r.pool.QueryRow(ctx,
		`SELECT `+allocationColumns+` FROM inventory_allocations WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Allocation{}, ErrAllocationNotFound
		}
		return Allocation{}, err
	}
	return a, nil
}

// ListByShipment returns the shipment manifest ordered by creation.
func (r *Repository) ListByShipment(ctx context.Context, shipmentID int64) ([]Allocation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+allocationColumns+` FROM inventory_allocations WHERE shipment_id=$1 ORDER BY created_at ASC, id ASC`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	allocations := []Allocation{}
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// ListMovements returns the append-only movement trail for an item.
func (r *Repository) ListMovements(ctx context.Context, inventoryItemID int64) ([]Movement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, inventory_item_id, ref_type, ref_id, qty_delta, created_at
FROM inventory_movements WHERE inventory_item_id=$1 ORDER BY created_at ASC, id ASC`, inventoryItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.InventoryItemID, &m.RefType, &m.RefID, &m.QtyDelta, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txRepository) GetAllocationForUpdate(ctx context.Context, id int64) (Allocation, error) {
	a, err := scanAllocation(r.tx.QueryRow(ctx,
		`SELECT `+allocationColumns+` FROM inventory_allocations WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Allocation{}, ErrAllocationNotFound
		}
		return Allocation{}, err
	}
	return a, nil
}

func (r *txRepository) GetInventoryItemForUpdate(ctx context.Context, id int64) (InventoryItem, error) {
	var item InventoryItem
	err := r.tx.QueryRow(ctx,
		`SELECT id, receipt_id, initial_qty, current_qty FROM inventory_items WHERE id=$1 FOR UPDATE`, id).
		Scan(&item.ID, &item.ReceiptID, &item.InitialQty, &item.CurrentQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryItem{}, ErrInventoryItemNotFound
		}
		return InventoryItem{}, err
	}
	return item, nil
}

func (r *txRepository) SumReservedQty(ctx context.Context, inventoryItemID int64) (int64, error) {
	var reserved int64
	err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(allocated_qty), 0) FROM inventory_allocations
WHERE inventory_item_id=$1 AND status IN ($2, $3, $4)`,
		inventoryItemID, StatusAllocated, StatusPicked, StatusLoaded).Scan(&reserved)
	return reserved, err
}

func (r *txRepository) InsertAllocation(ctx context.Context, a Allocation) (Allocation, error) {
	now := time.Now().UTC()
	err := r.tx.QueryRow(ctx,
		`INSERT INTO inventory_allocations (inventory_item_id, shipment_id, container_id, allocated_qty, picked_qty, loaded_qty, shipped_qty, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9) RETURNING id, created_at, updated_at`,
		a.InventoryItemID, a.ShipmentID, a.ContainerID, a.AllocatedQty,
		a.PickedQty, a.LoadedQty, a.ShippedQty, string(a.Status), now).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) UpdateAllocation(ctx context.Context, a Allocation) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE inventory_allocations
SET container_id=$2, allocated_qty=$3, picked_qty=$4, loaded_qty=$5, shipped_qty=$6, status=$7, updated_at=NOW()
WHERE id=$1`,
		a.ID, a.ContainerID, a.AllocatedQty, a.PickedQty, a.LoadedQty, a.ShippedQty, string(a.Status))
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO inventory_movements (inventory_item_id, ref_type, ref_id, qty_delta, created_at)
VALUES ($1,$2,$3,$4,NOW()) RETURNING id`,
		m.InventoryItemID, string(m.RefType), m.RefID, m.QtyDelta).Scan(&id)
	return id, err
}

func (r *txRepository) DecrementItemCurrentQty(ctx context.Context, itemID, by int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE inventory_items SET current_qty = current_qty - $2, updated_at=NOW() WHERE id=$1`, itemID, by)
	return err
}
