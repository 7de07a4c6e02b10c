package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyOrder      = errors.New("order must have at least one item")
	ErrBadQuantity     = errors.New("item quantity must be >= 1")
	ErrNoAddress       = errors.New("shipping address is required")
)

// ProductNotPurchasableError is returned when an ordered product exists
// but is not in a purchasable status.
type ProductNotPurchasableError struct {
	ProductID int64
	Status    string
}

func (e *ProductNotPurchasableError) Error() string {
	return fmt.Sprintf("product %d is not purchasable (status %s)", e.ProductID, e.Status)
}

// InsufficientStockError names the shortfall so the caller can render a
// precise message. It is also used when a concurrent order wins the
// conditional decrement race, in which case the request is retryable.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ItemInput is one requested order line. Callers cannot supply prices;
// pricing always comes from the catalog inside the transaction.
type ItemInput struct {
	ProductID int64
	Quantity  int
}

// CreateOrderInput is the validated, typed input for order creation.
type CreateOrderInput struct {
	BuyerID         int64
	Items           []ItemInput
	ShippingAddress string
}

// Coordinator creates orders as a single all-or-nothing transaction:
// availability check, conditional stock reservation, authoritative
// pricing, order + item + history inserts. Any failure rolls the whole
// thing back, so no stock is ever consumed without its order row.
type Coordinator struct {
	store     store.Store
	lifecycle *Lifecycle
}

func NewCoordinator(st store.Store, lifecycle *Lifecycle) *Coordinator {
	return &Coordinator{store: st, lifecycle: lifecycle}
}

// CreateOrder reserves stock and persists the order atomically.
func (c *Coordinator) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if input.ShippingAddress == "" {
		return nil, ErrNoAddress
	}

	// Aggregate duplicate product lines up front so a repeated product
	// is validated and reserved once for its combined quantity instead
	// of line by line against an already-decremented total.
	requested := make(map[int64]int, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d", ErrBadQuantity, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	// Reserve in ascending product order so concurrent orders touching
	// the same products cannot deadlock on each other.
	productIDs := make([]int64, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	var out *models.Order
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		products, err := tx.Products().GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}

		recordIDs := make(map[int64]int64, len(productIDs))
		for _, id := range productIDs {
			p, ok := products[id]
			if !ok {
				return fmt.Errorf("%w: product %d", ErrProductNotFound, id)
			}
			if !p.Purchasable() {
				return &ProductNotPurchasableError{ProductID: id, Status: p.Status}
			}

			rec, err := tx.Inventory().GetByProductID(ctx, id, false)
			if err != nil {
				return err
			}
			available := 0
			if rec != nil {
				available = rec.Quantity
				recordIDs[id] = rec.ID
			}
			if available < requested[id] {
				return &InsufficientStockError{ProductID: id, Requested: requested[id], Available: available}
			}
		}

		prices := SnapshotPrices(products)
		var total int64
		for _, id := range productIDs {
			total += prices.UnitPrice(id) * int64(requested[id])
		}

		now := time.Now()
		buyerID := input.BuyerID

		// Conditional decrement per product: it only lands if quantity
		// still covers the request at write time, so a reservation that
		// raced us fails here and aborts the whole transaction.
		for _, id := range productIDs {
			qty := requested[id]
			ok, err := tx.Inventory().DecrementIfAvailable(ctx, id, qty)
			if err != nil {
				return err
			}
			if !ok {
				current, err := tx.Inventory().GetByProductID(ctx, id, false)
				if err != nil {
					return err
				}
				available := 0
				if current != nil {
					available = current.Quantity
				}
				return &InsufficientStockError{ProductID: id, Requested: qty, Available: available}
			}

			after, err := tx.Inventory().GetByProductID(ctx, id, false)
			if err != nil {
				return err
			}
			adj := &models.InventoryAdjustment{
				RecordID:  recordIDs[id],
				Delta:     -qty,
				Reason:    models.AdjustmentReasonReservation,
				ActorID:   &buyerID,
				CreatedAt: now,
			}
			if err := tx.Inventory().AppendAdjustment(ctx, adj); err != nil {
				return err
			}
			if err := tx.Products().SyncStockQuantity(ctx, id, after.Quantity); err != nil {
				return err
			}
		}

		o := &models.Order{
			Reference:       uuid.NewString(),
			UserID:          input.BuyerID,
			Status:          models.OrderStatusPendingPayment,
			TotalAmount:     total,
			ShippingAddress: input.ShippingAddress,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}

		for _, item := range input.Items {
			line := &models.OrderItem{
				OrderID:   o.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: prices.UnitPrice(item.ProductID),
				CreatedAt: now,
			}
			if err := tx.Orders().InsertItem(ctx, line); err != nil {
				return err
			}
			o.Items = append(o.Items, *line)
		}

		h := &models.OrderStatusHistory{
			OrderID:   o.ID,
			Status:    models.OrderStatusPendingPayment,
			Note:      "order created",
			ActorID:   &buyerID,
			CreatedAt: now,
		}
		if err := tx.Orders().AppendHistory(ctx, h); err != nil {
			return err
		}
		o.History = append(o.History, *h)

		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOverdue cancels orders stuck in pending_payment since before
// maxAge and releases their reserved stock, one order per transaction.
// Returns how many orders were cancelled.
func (c *Coordinator) CancelOverdue(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	var staleIDs []int64
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		ids, err := tx.Orders().ListStaleIDs(ctx, models.OrderStatusPendingPayment, cutoff)
		if err != nil {
			return err
		}
		staleIDs = ids
		return nil
	})
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, orderID := range staleIDs {
		err := c.store.WithinTx(ctx, func(tx store.Tx) error {
			o, err := tx.Orders().GetByID(ctx, orderID, true)
			if err != nil {
				return err
			}
			// Re-check under the lock: the order may have been paid or
			// cancelled since the scan.
			if o == nil || o.Status != models.OrderStatusPendingPayment {
				return nil
			}

			if _, err := c.lifecycle.TransitionTx(ctx, tx, orderID, models.OrderStatusCancelled, "payment deadline expired", nil); err != nil {
				return err
			}

			items, err := tx.Orders().ListItems(ctx, orderID)
			if err != nil {
				return err
			}
			released := make(map[int64]int, len(items))
			for _, item := range items {
				released[item.ProductID] += item.Quantity
			}
			now := time.Now()
			for productID, qty := range released {
				if err := tx.Inventory().IncrementQuantity(ctx, productID, qty); err != nil {
					return err
				}
				rec, err := tx.Inventory().GetByProductID(ctx, productID, false)
				if err != nil {
					return err
				}
				if rec == nil {
					continue
				}
				adj := &models.InventoryAdjustment{
					RecordID:  rec.ID,
					Delta:     qty,
					Reason:    models.AdjustmentReasonRelease,
					CreatedAt: now,
				}
				if err := tx.Inventory().AppendAdjustment(ctx, adj); err != nil {
					return err
				}
				if err := tx.Products().SyncStockQuantity(ctx, productID, rec.Quantity); err != nil {
					return err
				}
			}

			cancelled++
			return nil
		})
		if err != nil {
			return cancelled, err
		}
	}
	return cancelled, nil
}
