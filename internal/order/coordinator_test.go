package order

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
	"github.com/orbitcart/orbitcart-backend/internal/store/memstore"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *Lifecycle, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	lifecycle := NewLifecycle(st)
	return NewCoordinator(st, lifecycle), lifecycle, st
}

// seedStockedProduct creates a published product with a ledger record
// holding qty units.
func seedStockedProduct(t *testing.T, st *memstore.Store, name string, price float64, qty int) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		p := &models.Product{
			SupplierID:    1,
			Name:          name,
			Price:         price,
			StockQuantity: qty,
			Status:        models.ProductStatusPublished,
		}
		if err := tx.Products().Create(ctx, p); err != nil {
			return err
		}
		id = p.ID

		now := time.Now()
		rec := &models.InventoryRecord{
			ProductID:      id,
			Quantity:       qty,
			LastAdjustedAt: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.Inventory().Create(ctx, rec)
	})
	require.NoError(t, err)
	return id
}

func ledgerQuantity(t *testing.T, st *memstore.Store, productID int64) int {
	t.Helper()
	ctx := context.Background()
	var qty int
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		rec, err := tx.Inventory().GetByProductID(ctx, productID, false)
		if err != nil {
			return err
		}
		require.NotNil(t, rec)
		qty = rec.Quantity
		return nil
	})
	require.NoError(t, err)
	return qty
}

func countOrders(t *testing.T, st *memstore.Store, status models.OrderStatus) int {
	t.Helper()
	ctx := context.Background()
	var n int
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		count, err := tx.Orders().CountByStatus(ctx, status)
		if err != nil {
			return err
		}
		n = count
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestCoordinator_CreateOrder_Success(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()

	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)
	cable := seedStockedProduct(t, st, "hdmi cable", 5.00, 4)

	o, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID: 7,
		Items: []ItemInput{
			{ProductID: hub, Quantity: 2},
			{ProductID: cable, Quantity: 1},
		},
		ShippingAddress: "42 Jalan Ampang, Kuala Lumpur",
	})
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.NotEmpty(t, o.Reference)
	assert.Equal(t, int64(7), o.UserID)
	assert.Equal(t, models.OrderStatusPendingPayment, o.Status)

	// 2 * 1999 + 1 * 500, in minor units from the catalog.
	assert.Equal(t, int64(4498), o.TotalAmount)

	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(1999), o.Items[0].UnitPrice)
	assert.Equal(t, int64(500), o.Items[1].UnitPrice)

	require.Len(t, o.History, 1)
	assert.Equal(t, models.OrderStatusPendingPayment, o.History[0].Status)
	assert.Equal(t, "order created", o.History[0].Note)

	// Stock was reserved and the legacy counter mirrored.
	assert.Equal(t, 8, ledgerQuantity(t, st, hub))
	assert.Equal(t, 3, ledgerQuantity(t, st, cable))
	err = st.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.Products().GetByID(ctx, hub, false)
		if err != nil {
			return err
		}
		assert.Equal(t, 8, p.StockQuantity)
		return nil
	})
	require.NoError(t, err)
}

func TestCoordinator_CreateOrder_ReservationIsAudited(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)

	_, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: hub, Quantity: 4}},
		ShippingAddress: "addr",
	})
	require.NoError(t, err)

	err = st.WithinTx(ctx, func(tx store.Tx) error {
		rec, err := tx.Inventory().GetByProductID(ctx, hub, false)
		if err != nil {
			return err
		}
		adjustments, err := tx.Inventory().ListAdjustments(ctx, rec.ID)
		if err != nil {
			return err
		}
		require.Len(t, adjustments, 1)
		assert.Equal(t, -4, adjustments[0].Delta)
		assert.Equal(t, models.AdjustmentReasonReservation, adjustments[0].Reason)
		require.NotNil(t, adjustments[0].ActorID)
		assert.Equal(t, int64(7), *adjustments[0].ActorID)
		return nil
	})
	require.NoError(t, err)
}

func TestCoordinator_CreateOrder_ValidatesInput(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)

	_, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		ShippingAddress: "addr",
	})
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID: 7,
		Items:   []ItemInput{{ProductID: hub, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNoAddress)

	_, err = coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: hub, Quantity: 0}},
		ShippingAddress: "addr",
	})
	assert.ErrorIs(t, err, ErrBadQuantity)
}

func TestCoordinator_CreateOrder_UnknownProduct(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)

	_, err := coordinator.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: 404, Quantity: 1}},
		ShippingAddress: "addr",
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCoordinator_CreateOrder_UnpublishedProduct(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Products().SetStatus(ctx, hub, models.ProductStatusDraft)
	})
	require.NoError(t, err)

	_, err = coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: hub, Quantity: 1}},
		ShippingAddress: "addr",
	})

	var notPurchasable *ProductNotPurchasableError
	require.ErrorAs(t, err, &notPurchasable)
	assert.Equal(t, hub, notPurchasable.ProductID)
	assert.Equal(t, models.ProductStatusDraft, notPurchasable.Status)
}

func TestCoordinator_CreateOrder_InsufficientStock(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 3)

	_, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: hub, Quantity: 5}},
		ShippingAddress: "addr",
	})

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, hub, short.ProductID)
	assert.Equal(t, 5, short.Requested)
	assert.Equal(t, 3, short.Available)

	// All-or-nothing: nothing was written.
	assert.Equal(t, 3, ledgerQuantity(t, st, hub))
	assert.Equal(t, 0, countOrders(t, st, models.OrderStatusPendingPayment))
}

func TestCoordinator_CreateOrder_FailureLeavesNoPartialState(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()

	// Plenty of the first product, none left of the second. The first
	// product's reservation must not survive the failed order.
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)
	cable := seedStockedProduct(t, st, "hdmi cable", 5.00, 0)

	_, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID: 7,
		Items: []ItemInput{
			{ProductID: hub, Quantity: 2},
			{ProductID: cable, Quantity: 1},
		},
		ShippingAddress: "addr",
	})

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, cable, short.ProductID)

	assert.Equal(t, 10, ledgerQuantity(t, st, hub))
	assert.Equal(t, 0, countOrders(t, st, models.OrderStatusPendingPayment))
}

func TestCoordinator_CreateOrder_AggregatesDuplicateLines(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 10.00, 5)

	// Two lines of 3 are a combined demand of 6 against 5 on hand;
	// validating line by line would wrongly accept both.
	_, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID: 7,
		Items: []ItemInput{
			{ProductID: hub, Quantity: 3},
			{ProductID: hub, Quantity: 3},
		},
		ShippingAddress: "addr",
	})

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 6, short.Requested)
	assert.Equal(t, 5, short.Available)
	assert.Equal(t, 5, ledgerQuantity(t, st, hub))

	// With enough stock the combined demand succeeds and both input
	// lines are kept as separate item rows.
	o, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID: 7,
		Items: []ItemInput{
			{ProductID: hub, Quantity: 3},
			{ProductID: hub, Quantity: 2},
		},
		ShippingAddress: "addr",
	})
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, int64(5000), o.TotalAmount)
	assert.Equal(t, 0, ledgerQuantity(t, st, hub))
}

func TestCoordinator_CreateOrder_ConcurrentOversellPreventsDoubleSale(t *testing.T) {
	coordinator, _, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 1)

	const attempts = 20
	var ok, short int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_, err := coordinator.CreateOrder(ctx, CreateOrderInput{
				BuyerID:         buyer,
				Items:           []ItemInput{{ProductID: hub, Quantity: 1}},
				ShippingAddress: "addr",
			})
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			default:
				var stockErr *InsufficientStockError
				if assert.ErrorAs(t, err, &stockErr) {
					atomic.AddInt64(&short, 1)
				}
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok, "exactly one order may win the last unit")
	assert.Equal(t, int64(attempts-1), short)
	assert.Equal(t, 0, ledgerQuantity(t, st, hub))
	assert.Equal(t, 1, countOrders(t, st, models.OrderStatusPendingPayment))
}

func TestCoordinator_CancelOverdue_ReleasesStock(t *testing.T) {
	coordinator, lifecycle, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)

	o, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: hub, Quantity: 4}},
		ShippingAddress: "addr",
	})
	require.NoError(t, err)
	require.Equal(t, 6, ledgerQuantity(t, st, hub))

	time.Sleep(5 * time.Millisecond)

	cancelled, err := coordinator.CancelOverdue(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	got, err := lifecycle.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	require.Len(t, got.History, 2)
	assert.Equal(t, "payment deadline expired", got.History[1].Note)

	// Reserved stock goes back and the release is audited.
	assert.Equal(t, 10, ledgerQuantity(t, st, hub))
	err = st.WithinTx(ctx, func(tx store.Tx) error {
		rec, err := tx.Inventory().GetByProductID(ctx, hub, false)
		if err != nil {
			return err
		}
		adjustments, err := tx.Inventory().ListAdjustments(ctx, rec.ID)
		if err != nil {
			return err
		}
		require.Len(t, adjustments, 2)
		assert.Equal(t, -4, adjustments[0].Delta)
		assert.Equal(t, 4, adjustments[1].Delta)
		assert.Equal(t, models.AdjustmentReasonRelease, adjustments[1].Reason)
		return nil
	})
	require.NoError(t, err)

	// A second sweep finds nothing.
	cancelled, err = coordinator.CancelOverdue(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)
}

func TestCoordinator_CancelOverdue_SkipsPaidOrders(t *testing.T) {
	coordinator, lifecycle, st := newTestCoordinator(t)
	ctx := context.Background()
	hub := seedStockedProduct(t, st, "usb hub", 19.99, 10)

	o, err := coordinator.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         7,
		Items:           []ItemInput{{ProductID: hub, Quantity: 4}},
		ShippingAddress: "addr",
	})
	require.NoError(t, err)

	_, err = lifecycle.Transition(ctx, o.ID, models.OrderStatusPaid, "payment confirmed", nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	cancelled, err := coordinator.CancelOverdue(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)

	got, err := lifecycle.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
	assert.Equal(t, 6, ledgerQuantity(t, st, hub))
}
