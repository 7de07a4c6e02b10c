package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

//
// --- Shipment Handlers ---
//

// CreateShipmentInput defines the JSON for opening a shipment.
type CreateShipmentInput struct {
	OrderID        int64  `json:"orderId" binding:"required"`
	AssigneeID     int64  `json:"assigneeId" binding:"required"`
	TrackingNumber string `json:"trackingNumber"`
}

// CreateShipment is the handler for POST /v1/manager/shipments
func (h *Handlers) CreateShipment(c *gin.Context) {
	var input CreateShipmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.Shipments.Create(c.Request.Context(), input.OrderID, input.AssigneeID, input.TrackingNumber)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"shipment": s})
}

// ReassignInput defines the JSON for handing a shipment to another courier.
type ReassignInput struct {
	AssigneeID int64 `json:"assigneeId" binding:"required"`
}

// ReassignShipment is the handler for PATCH /v1/manager/shipments/:id/reassign
func (h *Handlers) ReassignShipment(c *gin.Context) {
	shipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shipment id"})
		return
	}

	var input ReassignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.Shipments.Reassign(c.Request.Context(), shipmentID, input.AssigneeID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipment": s})
}

// ShipmentStatusInput defines the JSON for a shipment transition.
type ShipmentStatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// TransitionShipment is the handler for PATCH /v1/shipments/:id/status.
// Couriers may only move their own shipments; managers and
// administrators may move any.
func (h *Handlers) TransitionShipment(c *gin.Context) {
	userID := currentUserID(c)

	shipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shipment id"})
		return
	}

	var input ShipmentStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.canActOnShipment(c, shipmentID, userID) {
		return
	}

	s, err := h.Shipments.Transition(c.Request.Context(), shipmentID, models.ShipmentStatus(input.Status), input.Note)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipment": s})
}

// GetShipment is the handler for GET /v1/shipments/:id. Returns the
// shipment with its full event log.
func (h *Handlers) GetShipment(c *gin.Context) {
	userID := currentUserID(c)

	shipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shipment id"})
		return
	}

	if !h.canActOnShipment(c, shipmentID, userID) {
		return
	}

	s, err := h.Shipments.Get(c.Request.Context(), shipmentID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	events, err := h.Shipments.Events(c.Request.Context(), shipmentID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shipment": s,
		"events":   events,
	})
}

// GetMyShipments is the handler for GET /v1/courier/shipments
func (h *Handlers) GetMyShipments(c *gin.Context) {
	userID := currentUserID(c)

	shipments, err := h.Shipments.ListByAssignee(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if shipments == nil {
		shipments = []models.Shipment{}
	}
	c.JSON(http.StatusOK, gin.H{"shipments": shipments})
}

// canActOnShipment enforces the access contract: couriers only touch
// shipments assigned to them, privileged roles touch all. It writes the
// error response itself and reports whether the caller may proceed.
func (h *Handlers) canActOnShipment(c *gin.Context, shipmentID, userID int64) bool {
	roleRaw, _ := c.Get("userRole")
	role, _ := roleRaw.(string)
	if role == models.RoleManager || role == models.RoleAdministrator {
		return true
	}

	s, err := h.Shipments.Get(c.Request.Context(), shipmentID)
	if err != nil {
		respondDomainError(c, err)
		return false
	}
	if s.AssigneeID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shipment not found"})
		return false
	}
	return true
}
