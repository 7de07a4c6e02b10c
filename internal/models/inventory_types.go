package models

import "time"

// InventoryRecord is the model for the 'inventory_records' table.
// It is the authoritative quantity for a product; the legacy
// products.stock_quantity column is a derived copy kept in sync
// inside the same transaction whenever stock moves.
type InventoryRecord struct {
	ID                int64     `json:"id" db:"id"`
	ProductID         int64     `json:"productId" db:"product_id"`
	Quantity          int       `json:"quantity" db:"quantity"`
	LowStockThreshold int       `json:"lowStockThreshold" db:"low_stock_threshold"`
	LastAdjustedAt    time.Time `json:"lastAdjustedAt" db:"last_adjusted_at"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// IsLowStock reports whether the record sits at or below its threshold
// while still having stock on hand.
func (r *InventoryRecord) IsLowStock() bool {
	return r.Quantity > 0 && r.Quantity <= r.LowStockThreshold
}

// IsOutOfStock reports whether the record has no sellable stock left.
func (r *InventoryRecord) IsOutOfStock() bool {
	return r.Quantity <= 0
}

// InventoryAdjustment is the model for the 'inventory_adjustments' table.
// Rows are append-only: they are never updated or deleted, so the sum of
// deltas for a record always equals its current quantity minus its
// initial quantity.
type InventoryAdjustment struct {
	ID        int64     `json:"id" db:"id"`
	RecordID  int64     `json:"recordId" db:"record_id"`
	Delta     int       `json:"delta" db:"delta"`
	Reason    string    `json:"reason" db:"reason"`
	ActorID   *int64    `json:"actorId,omitempty" db:"actor_id"` // nil = system
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Adjustment reasons written by the core paths.
const (
	AdjustmentReasonManual      = "manual adjustment"
	AdjustmentReasonReservation = "order reservation"
	AdjustmentReasonRelease     = "order cancellation release"
	AdjustmentReasonInitial     = "initial stock"
)

// StockSummary holds the dashboard counts computed from a single
// consistent snapshot of the inventory_records table.
type StockSummary struct {
	Total   int `json:"total"`
	Low     int `json:"low"`
	Out     int `json:"out"`
	InStock int `json:"inStock"`
}
