package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/orbitcart-backend/internal/cache"
	"github.com/orbitcart/orbitcart-backend/internal/inventory"
	"github.com/orbitcart/orbitcart-backend/internal/order"
	"github.com/orbitcart/orbitcart-backend/internal/shipment"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

// Handlers holds all dependencies for the HTTP layer.
type Handlers struct {
	DB          *sql.DB
	Store       store.Store
	Ledger      *inventory.Ledger
	Coordinator *order.Coordinator
	Orders      *order.Lifecycle
	Shipments   *shipment.Service

	// Idempotency is nil when no Redis address is configured; the
	// Idempotency-Key header is then ignored.
	Idempotency *cache.IdempotencyGuard
}

func currentUserID(c *gin.Context) int64 {
	userIDRaw, _ := c.Get("userID")
	return userIDRaw.(int64)
}

// respondDomainError translates core errors into HTTP responses. Every
// domain error carries enough context (current state, attempted target,
// requested vs available) to render a precise message, so the error
// text is returned as-is.
func respondDomainError(c *gin.Context, err error) {
	var (
		insufficientStock *order.InsufficientStockError
		notPurchasable    *order.ProductNotPurchasableError
		invalidAdjustment *inventory.InvalidAdjustmentError
		orderTransition   *order.InvalidTransitionError
		shipTransition    *shipment.InvalidTransitionError
		orderState        *shipment.OrderStateError
		shipState         *shipment.ShipmentStateError
		invalidAssignee   *shipment.InvalidAssigneeError
	)

	switch {
	case errors.Is(err, inventory.ErrRecordNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, shipment.ErrShipmentNotFound),
		errors.Is(err, shipment.ErrAssigneeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.As(err, &insufficientStock),
		errors.Is(err, shipment.ErrDuplicateShipment),
		errors.As(err, &orderTransition),
		errors.As(err, &shipTransition),
		errors.As(err, &orderState),
		errors.As(err, &shipState),
		errors.As(err, &notPurchasable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &invalidAdjustment),
		errors.As(err, &invalidAssignee),
		errors.Is(err, inventory.ErrZeroDelta),
		errors.Is(err, inventory.ErrBadThreshold),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrBadQuantity),
		errors.Is(err, order.ErrNoAddress),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, shipment.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
