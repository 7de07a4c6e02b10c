package order

import (
	"math"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

// MinorUnits converts a catalog price to minor-unit currency (cents),
// rounding half-up at two decimal places. All order money is stored as
// int64 minor units; floats never reach the orders tables.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// PricingSnapshot freezes the authoritative unit price per product at
// order-creation time. It is always built from the catalog rows read
// inside the creation transaction, never from caller input.
type PricingSnapshot map[int64]int64

func SnapshotPrices(products map[int64]*models.Product) PricingSnapshot {
	snap := make(PricingSnapshot, len(products))
	for id, p := range products {
		snap[id] = MinorUnits(p.Price)
	}
	return snap
}

// UnitPrice returns the frozen minor-unit price for a product.
func (s PricingSnapshot) UnitPrice(productID int64) int64 {
	return s[productID]
}
