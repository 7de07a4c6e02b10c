package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
	"github.com/orbitcart/orbitcart-backend/internal/store/memstore"
)

func newTestLedger(t *testing.T) (*Ledger, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return NewLedger(st), st
}

func seedProduct(t *testing.T, st *memstore.Store, name string) int64 {
	t.Helper()
	var id int64
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		p := &models.Product{
			SupplierID: 1,
			Name:       name,
			Price:      19.99,
			Status:     models.ProductStatusPublished,
		}
		if err := tx.Products().Create(context.Background(), p); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func productStockQuantity(t *testing.T, st *memstore.Store, productID int64) int {
	t.Helper()
	var qty int
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		p, err := tx.Products().GetByID(context.Background(), productID, false)
		if err != nil {
			return err
		}
		require.NotNil(t, p)
		qty = p.StockQuantity
		return nil
	})
	require.NoError(t, err)
	return qty
}

func TestLedger_EnsureRecord_CreatesOnce(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")

	rec, err := ledger.EnsureRecord(ctx, productID, 10)
	require.NoError(t, err)
	assert.Equal(t, productID, rec.ProductID)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 10, productStockQuantity(t, st, productID))

	// A second call returns the existing record; its initial quantity
	// is ignored.
	again, err := ledger.EnsureRecord(ctx, productID, 99)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, 10, again.Quantity)
}

func TestLedger_EnsureRecord_NegativeInitialClampsToZero(t *testing.T) {
	ledger, st := newTestLedger(t)
	productID := seedProduct(t, st, "usb hub")

	rec, err := ledger.EnsureRecord(context.Background(), productID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)
}

func TestLedger_Adjust_AppliesDeltaAndAudits(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")
	_, err := ledger.EnsureRecord(ctx, productID, 10)
	require.NoError(t, err)

	actorID := int64(42)
	rec, applied, err := ledger.Adjust(ctx, productID, 5, "restock", &actorID)
	require.NoError(t, err)
	assert.Equal(t, 5, applied)
	assert.Equal(t, 15, rec.Quantity)

	rec, applied, err = ledger.Adjust(ctx, productID, -3, "damaged units", &actorID)
	require.NoError(t, err)
	assert.Equal(t, -3, applied)
	assert.Equal(t, 12, rec.Quantity)

	// Legacy counter mirrors the ledger after every committed movement.
	assert.Equal(t, 12, productStockQuantity(t, st, productID))

	adjustments, err := ledger.Adjustments(ctx, productID)
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.Equal(t, 5, adjustments[0].Delta)
	assert.Equal(t, "restock", adjustments[0].Reason)
	require.NotNil(t, adjustments[0].ActorID)
	assert.Equal(t, actorID, *adjustments[0].ActorID)
	assert.Equal(t, -3, adjustments[1].Delta)
}

func TestLedger_Adjust_ZeroDelta(t *testing.T) {
	ledger, st := newTestLedger(t)
	productID := seedProduct(t, st, "usb hub")
	_, err := ledger.EnsureRecord(context.Background(), productID, 10)
	require.NoError(t, err)

	_, _, err = ledger.Adjust(context.Background(), productID, 0, "", nil)
	assert.ErrorIs(t, err, ErrZeroDelta)
}

func TestLedger_Adjust_MissingRecord(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, _, err := ledger.Adjust(context.Background(), 404, -1, "", nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLedger_Adjust_RejectsNegativeResult(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")
	_, err := ledger.EnsureRecord(ctx, productID, 5)
	require.NoError(t, err)

	_, _, err = ledger.Adjust(ctx, productID, -8, "", nil)

	var invalid *InvalidAdjustmentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, productID, invalid.ProductID)
	assert.Equal(t, -8, invalid.Delta)
	assert.Equal(t, 5, invalid.Current)

	// The rejection must leave no trace: quantity, counter and audit
	// log are all unchanged.
	rec, err := ledger.EnsureRecord(ctx, productID, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
	assert.Equal(t, 5, productStockQuantity(t, st, productID))

	adjustments, err := ledger.Adjustments(ctx, productID)
	require.NoError(t, err)
	assert.Empty(t, adjustments)
}

func TestLedger_Adjust_DefaultsReason(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")
	_, err := ledger.EnsureRecord(ctx, productID, 1)
	require.NoError(t, err)

	_, _, err = ledger.Adjust(ctx, productID, 1, "", nil)
	require.NoError(t, err)

	adjustments, err := ledger.Adjustments(ctx, productID)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, models.AdjustmentReasonManual, adjustments[0].Reason)
	assert.Nil(t, adjustments[0].ActorID)
}

func TestLedger_Adjust_ConcurrentDecrementsAllLand(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")

	const n = 50
	_, err := ledger.EnsureRecord(ctx, productID, n)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.Adjust(ctx, productID, -1, "", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := ledger.EnsureRecord(ctx, productID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity, "no decrement may be lost")
	assert.Equal(t, 0, productStockQuantity(t, st, productID))

	adjustments, err := ledger.Adjustments(ctx, productID)
	require.NoError(t, err)
	assert.Len(t, adjustments, n)
}

func TestLedger_Adjustments_SumMatchesQuantityDrift(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")

	const initial = 20
	_, err := ledger.EnsureRecord(ctx, productID, initial)
	require.NoError(t, err)

	deltas := []int{7, -3, -10, 4, -6}
	for _, d := range deltas {
		_, _, err := ledger.Adjust(ctx, productID, d, "", nil)
		require.NoError(t, err)
	}

	rec, err := ledger.EnsureRecord(ctx, productID, 0)
	require.NoError(t, err)

	adjustments, err := ledger.Adjustments(ctx, productID)
	require.NoError(t, err)
	sum := 0
	for _, adj := range adjustments {
		sum += adj.Delta
	}
	assert.Equal(t, rec.Quantity-initial, sum)
}

func TestLedger_UpdateThreshold(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()
	productID := seedProduct(t, st, "usb hub")
	_, err := ledger.EnsureRecord(ctx, productID, 10)
	require.NoError(t, err)

	rec, err := ledger.UpdateThreshold(ctx, productID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.LowStockThreshold)

	_, err = ledger.UpdateThreshold(ctx, productID, -1)
	assert.ErrorIs(t, err, ErrBadThreshold)

	_, err = ledger.UpdateThreshold(ctx, 404, 3)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLedger_Summary(t *testing.T) {
	ledger, st := newTestLedger(t)
	ctx := context.Background()

	// healthy: 10 on hand, threshold 3
	healthy := seedProduct(t, st, "healthy")
	_, err := ledger.EnsureRecord(ctx, healthy, 10)
	require.NoError(t, err)
	_, err = ledger.UpdateThreshold(ctx, healthy, 3)
	require.NoError(t, err)

	// low: 2 on hand, threshold 5
	low := seedProduct(t, st, "low")
	_, err = ledger.EnsureRecord(ctx, low, 2)
	require.NoError(t, err)
	_, err = ledger.UpdateThreshold(ctx, low, 5)
	require.NoError(t, err)

	// out: nothing on hand
	out := seedProduct(t, st, "out")
	_, err = ledger.EnsureRecord(ctx, out, 0)
	require.NoError(t, err)

	summary, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Low)
	assert.Equal(t, 1, summary.Out)
	assert.Equal(t, 1, summary.InStock)
}
