package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing master data row.
var ErrNotFound = errors.New("masterdata: record not found")

// Repository serves read-only master data lookups from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetContainer loads one container.
func (r *Repository) GetContainer(ctx context.Context, id int64) (Container, error) {
	var c Container
	err := r.pool.QueryRow(ctx,
		`SELECT id, shipment_id, code, created_at FROM containers WHERE id=$1`, id).
		Scan(&c.ID, &c.ShipmentID, &c.Code, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Container{}, ErrNotFound
		}
		return Container{}, err
	}
	return c, nil
}

// GetShipment loads one shipment header.
func (r *Repository) GetShipment(ctx context.Context, id int64) (Shipment, error) {
	var s Shipment
	err := r.pool.QueryRow(ctx,
		`SELECT id, reference, created_at FROM shipments WHERE id=$1`, id).
		Scan(&s.ID, &s.Reference, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrNotFound
		}
		return Shipment{}, err
	}
	return s, nil
}
