package receipt

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists receipt status and serves stats from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	ListItemQuantities(ctx context.Context, receiptID int64) ([]ItemQuantities, error)
	UpdateReceiptStatus(ctx context.Context, receiptID int64, status Status) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction so the
// persisted status always matches the item snapshot it was derived from. The
// deferred rollback also covers panics unwinding out of the callback.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("receipt repository not initialised")
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

// GetStats aggregates item totals for a receipt.
func (r *Repository) GetStats(ctx context.Context, receiptID int64) (Stats, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM warehouse_receipts WHERE id=$1)`, receiptID).Scan(&exists); err != nil {
		return Stats{}, err
	}
	if !exists {
		return Stats{}, ErrReceiptNotFound
	}
	stats := Stats{ReceiptID: receiptID}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(initial_qty), 0), COALESCE(SUM(current_qty), 0), COALESCE(SUM(weight_per_unit * initial_qty), 0)
FROM inventory_items WHERE receipt_id=$1`, receiptID).
		Scan(&stats.ItemCount, &stats.TotalInitialQty, &stats.TotalCurrentQty, &stats.TotalWeight)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (r *txRepository) ListItemQuantities(ctx context.Context, receiptID int64) ([]ItemQuantities, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT initial_qty, current_qty FROM inventory_items WHERE receipt_id=$1`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ItemQuantities{}
	for rows.Next() {
		var item ItemQuantities
		if err := rows.Scan(&item.InitialQty, &item.CurrentQty); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) UpdateReceiptStatus(ctx context.Context, receiptID int64, status Status) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE warehouse_receipts SET status=$2, updated_at=NOW() WHERE id=$1`, receiptID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}
