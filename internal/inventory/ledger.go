package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

var (
	ErrRecordNotFound = errors.New("inventory record not found")
	ErrZeroDelta      = errors.New("adjustment delta must be non-zero")
	ErrBadThreshold   = errors.New("low-stock threshold must be >= 0")
)

// InvalidAdjustmentError is returned when an adjustment would drive the
// quantity negative. No state changes when it is returned.
type InvalidAdjustmentError struct {
	ProductID int64
	Delta     int
	Current   int
}

func (e *InvalidAdjustmentError) Error() string {
	return fmt.Sprintf("adjustment %+d on product %d would go negative (current quantity %d)",
		e.Delta, e.ProductID, e.Current)
}

// Ledger owns inventory records and their append-only adjustment log.
// It is the single writer for ledger quantities; the order path only
// moves stock through the conditional decrement it exposes via the
// store, and every committed path rewrites the legacy product counter
// to the ledger value in the same transaction.
type Ledger struct {
	store store.Store
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// EnsureRecord creates the ledger record for a product if it does not
// exist yet and returns it. Calling it again for the same product
// returns the existing record unchanged; the initial quantity of a
// second call is ignored.
func (l *Ledger) EnsureRecord(ctx context.Context, productID int64, initialQty int) (*models.InventoryRecord, error) {
	if initialQty < 0 {
		initialQty = 0
	}

	var out *models.InventoryRecord
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Inventory().GetByProductID(ctx, productID, false)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}

		now := time.Now()
		rec := &models.InventoryRecord{
			ProductID:      productID,
			Quantity:       initialQty,
			LastAdjustedAt: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Inventory().Create(ctx, rec); err != nil {
			// Lost a create race; the record exists now.
			if errors.Is(err, store.ErrDuplicateKey) {
				existing, err := tx.Inventory().GetByProductID(ctx, productID, false)
				if err != nil {
					return err
				}
				out = existing
				return nil
			}
			return err
		}
		if err := tx.Products().SyncStockQuantity(ctx, productID, rec.Quantity); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Adjust applies a signed delta to a product's quantity under an
// exclusive record lock, appends one audit row, and mirrors the new
// quantity to the legacy product counter. The whole read-modify-write
// commits or rolls back as one transaction, so concurrent adjustments
// on the same product serialize and none is lost.
func (l *Ledger) Adjust(ctx context.Context, productID int64, delta int, reason string, actorID *int64) (*models.InventoryRecord, int, error) {
	if delta == 0 {
		return nil, 0, ErrZeroDelta
	}
	if reason == "" {
		reason = models.AdjustmentReasonManual
	}

	var out *models.InventoryRecord
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		rec, err := tx.Inventory().GetByProductID(ctx, productID, true)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: product %d", ErrRecordNotFound, productID)
		}

		newQty := rec.Quantity + delta
		if newQty < 0 {
			return &InvalidAdjustmentError{ProductID: productID, Delta: delta, Current: rec.Quantity}
		}

		now := time.Now()
		rec.Quantity = newQty
		rec.LastAdjustedAt = now
		rec.UpdatedAt = now
		if err := tx.Inventory().SaveQuantity(ctx, rec); err != nil {
			return err
		}

		adj := &models.InventoryAdjustment{
			RecordID:  rec.ID,
			Delta:     delta,
			Reason:    reason,
			ActorID:   actorID,
			CreatedAt: now,
		}
		if err := tx.Inventory().AppendAdjustment(ctx, adj); err != nil {
			return err
		}

		if err := tx.Products().SyncStockQuantity(ctx, productID, newQty); err != nil {
			return err
		}

		out = rec
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, delta, nil
}

// Summary returns dashboard counts from one consistent snapshot.
func (l *Ledger) Summary(ctx context.Context) (*models.StockSummary, error) {
	var out *models.StockSummary
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		s, err := tx.Inventory().Summary(ctx)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateThreshold sets the low-stock threshold for a product's record.
func (l *Ledger) UpdateThreshold(ctx context.Context, productID int64, threshold int) (*models.InventoryRecord, error) {
	if threshold < 0 {
		return nil, ErrBadThreshold
	}

	var out *models.InventoryRecord
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		rec, err := tx.Inventory().GetByProductID(ctx, productID, true)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: product %d", ErrRecordNotFound, productID)
		}
		rec.LowStockThreshold = threshold
		rec.UpdatedAt = time.Now()
		if err := tx.Inventory().SaveThreshold(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Adjustments returns the full audit log for a product's record.
func (l *Ledger) Adjustments(ctx context.Context, productID int64) ([]models.InventoryAdjustment, error) {
	var out []models.InventoryAdjustment
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		rec, err := tx.Inventory().GetByProductID(ctx, productID, false)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: product %d", ErrRecordNotFound, productID)
		}
		out, err = tx.Inventory().ListAdjustments(ctx, rec.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
