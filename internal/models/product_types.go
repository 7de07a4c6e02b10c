package models

import "time"

// Product statuses. Only published products are purchasable.
const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusRejected  = "rejected"
)

// Product is the model for the 'products' table.
//
// StockQuantity is a legacy duplicate of the ledger quantity kept for
// older read paths; it is rewritten from inventory_records inside the
// same transaction on every stock movement and must never be mutated
// on its own.
type Product struct {
	ID            int64   `json:"id" db:"id"`
	SupplierID    int64   `json:"supplierId" db:"supplier_id"`
	SKU           string  `json:"sku" db:"sku"`
	Name          string  `json:"name" db:"name"`
	Description   string  `json:"description" db:"description"`
	Price         float64 `json:"price" db:"price"`
	StockQuantity int     `json:"stock" db:"stock_quantity"`
	Status        string  `json:"status" db:"status"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Purchasable reports whether the product may appear on a new order.
func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusPublished
}
