package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

//
// --- Stock Ledger Handlers (Manager-Only) ---
//

// EnsureRecordInput defines the JSON for creating a ledger record.
type EnsureRecordInput struct {
	ProductID       int64 `json:"productId" binding:"required"`
	InitialQuantity int   `json:"initialQuantity" binding:"gte=0"`
}

// EnsureInventoryRecord is the handler for POST /v1/manager/inventory.
// Idempotent: repeating the call returns the existing record unchanged.
func (h *Handlers) EnsureInventoryRecord(c *gin.Context) {
	var input EnsureRecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.Ledger.EnsureRecord(c.Request.Context(), input.ProductID, input.InitialQuantity)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// AdjustInput defines the JSON for a manual stock adjustment.
type AdjustInput struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// AdjustInventory is the handler for POST /v1/manager/inventory/:product_id/adjust
func (h *Handlers) AdjustInventory(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	var input AdjustInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID := currentUserID(c)
	record, applied, err := h.Ledger.Adjust(c.Request.Context(), productID, input.Delta, input.Reason, &actorID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":       record,
		"appliedDelta": applied,
	})
}

// ThresholdInput defines the JSON for updating the low-stock threshold.
type ThresholdInput struct {
	Threshold int `json:"threshold" binding:"gte=0"`
}

// UpdateInventoryThreshold is the handler for
// PATCH /v1/manager/inventory/:product_id/threshold
func (h *Handlers) UpdateInventoryThreshold(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	var input ThresholdInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.Ledger.UpdateThreshold(c.Request.Context(), productID, input.Threshold)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// GetInventorySummary is the handler for GET /v1/manager/inventory/summary
func (h *Handlers) GetInventorySummary(c *gin.Context) {
	summary, err := h.Ledger.Summary(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetInventoryAdjustments is the handler for
// GET /v1/manager/inventory/:product_id/adjustments
func (h *Handlers) GetInventoryAdjustments(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	adjustments, err := h.Ledger.Adjustments(c.Request.Context(), productID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"adjustments": adjustments})
}
