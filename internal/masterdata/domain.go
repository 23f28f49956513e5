package masterdata

import "time"

// Shipment is an outbound consignment header. Master data here is read-only;
// the allocation engine only performs referential checks against it.
type Shipment struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// Container is a physical unit (trailer, ocean box) attached to one shipment.
type Container struct {
	ID         int64     `json:"id"`
	ShipmentID int64     `json:"shipment_id"`
	Code       string    `json:"code"`
	CreatedAt  time.Time `json:"created_at"`
}
