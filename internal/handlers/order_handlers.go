package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/order"
)

//
// --- Order Handlers ---
//

// CheckoutItemInput is one requested line. There is deliberately no
// price field: pricing always comes from the catalog.
type CheckoutItemInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gte=1"`
}

// CheckoutInput defines the JSON for POST /v1/dropshipper/checkout
type CheckoutInput struct {
	Items           []CheckoutItemInput `json:"items" binding:"required,min=1"`
	ShippingAddress string              `json:"shippingAddress" binding:"required"`
}

// Checkout is the handler for POST /v1/dropshipper/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	buyerID := currentUserID(c)

	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Optional request deduplication via the Idempotency-Key header.
	idemKey := c.GetHeader("Idempotency-Key")
	if h.Idempotency != nil && idemKey != "" {
		ok, err := h.Idempotency.Claim(c.Request.Context(), idemKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Idempotency check failed"})
			return
		}
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"error": "Duplicate request"})
			return
		}
	}

	items := make([]order.ItemInput, len(input.Items))
	for i, item := range input.Items {
		items[i] = order.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.Coordinator.CreateOrder(c.Request.Context(), order.CreateOrderInput{
		BuyerID:         buyerID,
		Items:           items,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		// A failed checkout may be retried with the same key.
		if h.Idempotency != nil && idemKey != "" {
			if relErr := h.Idempotency.Release(c.Request.Context(), idemKey); relErr != nil {
				log.Printf("Failed to release idempotency key: %v", relErr)
			}
		}
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": o})
}

// GetMyOrders is the handler for GET /v1/dropshipper/orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := currentUserID(c)

	orders, err := h.Orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails is the handler for GET /v1/dropshipper/orders/:id
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID := currentUserID(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	o, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	// Ownership check: dropshippers only see their own orders.
	if o.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// OrderStatusInput defines the JSON for a manual status transition.
type OrderStatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// UpdateOrderStatus is the handler for PATCH /v1/manager/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	actorID := currentUserID(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	var input OrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.Orders.Transition(c.Request.Context(), orderID, models.OrderStatus(input.Status), input.Note, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// TrackingInput defines the JSON for recording a tracking update.
type TrackingInput struct {
	Carrier        string `json:"carrier" binding:"required"`
	TrackingNumber string `json:"trackingNumber" binding:"required"`
	Note           string `json:"note"`
}

// RecordOrderTracking is the handler for POST /v1/manager/orders/:id/tracking
// It appends a history entry without changing the order status.
func (h *Handlers) RecordOrderTracking(c *gin.Context) {
	actorID := currentUserID(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	var input TrackingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.Orders.RecordTrackingUpdate(c.Request.Context(), orderID, input.Carrier, input.TrackingNumber, input.Note, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}
