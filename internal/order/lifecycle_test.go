package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
	"github.com/orbitcart/orbitcart-backend/internal/store/memstore"
)

func newTestLifecycle(t *testing.T) (*Lifecycle, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return NewLifecycle(st), st
}

func seedOrder(t *testing.T, st *memstore.Store, status models.OrderStatus) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		now := time.Now()
		o := &models.Order{
			Reference:       uuid.NewString(),
			UserID:          7,
			Status:          status,
			TotalAmount:     1999,
			ShippingAddress: "addr",
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}
		id = o.ID

		item := &models.OrderItem{
			OrderID:   id,
			ProductID: 1,
			Quantity:  1,
			UnitPrice: 1999,
			CreatedAt: now,
		}
		if err := tx.Orders().InsertItem(ctx, item); err != nil {
			return err
		}
		h := &models.OrderStatusHistory{
			OrderID:   id,
			Status:    status,
			Note:      "order created",
			CreatedAt: now,
		}
		return tx.Orders().AppendHistory(ctx, h)
	})
	require.NoError(t, err)
	return id
}

func TestLifecycle_Transition_Allowed(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()
	orderID := seedOrder(t, st, models.OrderStatusPendingPayment)

	actorID := int64(99)
	o, err := lifecycle.Transition(ctx, orderID, models.OrderStatusPaid, "payment confirmed", &actorID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, o.Status)

	require.Len(t, o.History, 2)
	last := o.History[1]
	assert.Equal(t, models.OrderStatusPaid, last.Status)
	assert.Equal(t, "payment confirmed", last.Note)
	require.NotNil(t, last.ActorID)
	assert.Equal(t, actorID, *last.ActorID)
}

func TestLifecycle_Transition_SkippingStateRejected(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()
	orderID := seedOrder(t, st, models.OrderStatusPendingPayment)

	_, err := lifecycle.Transition(ctx, orderID, models.OrderStatusProcessing, "", nil)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.OrderStatusPendingPayment, invalid.Current)
	assert.Equal(t, models.OrderStatusProcessing, invalid.Target)
	assert.Contains(t, invalid.Allowed, models.OrderStatusPaid)

	// The rejection changes nothing: same status, no history row.
	o, err := lifecycle.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingPayment, o.Status)
	assert.Len(t, o.History, 1)
}

func TestLifecycle_Transition_TerminalStatesAreClosed(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()

	for _, terminal := range []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusRefunded} {
		orderID := seedOrder(t, st, terminal)
		_, err := lifecycle.Transition(ctx, orderID, models.OrderStatusProcessing, "", nil)

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "terminal status %s", terminal)
		assert.Empty(t, invalid.Allowed)
	}
}

func TestLifecycle_Transition_FailedRetriesIntoProcessing(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()
	orderID := seedOrder(t, st, models.OrderStatusFailed)

	o, err := lifecycle.Transition(ctx, orderID, models.OrderStatusProcessing, "retrying fulfillment", nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, o.Status)
}

func TestLifecycle_Transition_UnknownStatus(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	orderID := seedOrder(t, st, models.OrderStatusPendingPayment)

	_, err := lifecycle.Transition(context.Background(), orderID, "teleported", "", nil)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestLifecycle_Transition_OrderNotFound(t *testing.T) {
	lifecycle, _ := newTestLifecycle(t)

	_, err := lifecycle.Transition(context.Background(), 404, models.OrderStatusPaid, "", nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestLifecycle_RecordTrackingUpdate(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()
	orderID := seedOrder(t, st, models.OrderStatusShipped)

	o, err := lifecycle.RecordTrackingUpdate(ctx, orderID, "DHL", "JD0110", "left sorting facility", nil)
	require.NoError(t, err)

	// The note lands in history but the status is untouched.
	assert.Equal(t, models.OrderStatusShipped, o.Status)
	require.Len(t, o.History, 2)
	assert.Equal(t, models.OrderStatusShipped, o.History[1].Status)
	assert.Equal(t, "tracking update: DHL JD0110 - left sorting facility", o.History[1].Note)
}

func TestLifecycle_RecordTrackingUpdate_OrderNotFound(t *testing.T) {
	lifecycle, _ := newTestLifecycle(t)

	_, err := lifecycle.RecordTrackingUpdate(context.Background(), 404, "DHL", "JD0110", "", nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestLifecycle_Get(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()
	orderID := seedOrder(t, st, models.OrderStatusPendingPayment)

	o, err := lifecycle.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	assert.Len(t, o.Items, 1)
	assert.Len(t, o.History, 1)

	_, err = lifecycle.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestLifecycle_ListByUser(t *testing.T) {
	lifecycle, st := newTestLifecycle(t)
	ctx := context.Background()
	seedOrder(t, st, models.OrderStatusPendingPayment)
	seedOrder(t, st, models.OrderStatusPaid)

	orders, err := lifecycle.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = lifecycle.ListByUser(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
