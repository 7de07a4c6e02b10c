package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

//
// --- Manager Dashboard Stats ---
//

type ManagerStats struct {
	Stock          models.StockSummary `json:"stock"`
	PendingPayment int                 `json:"pendingPayment"`
	Processing     int                 `json:"processing"`
	Shipped        int                 `json:"shipped"`
}

// GetManagerStats returns KPI data for the manager dashboard.
// GET /v1/manager/dashboard-stats
func (h *Handlers) GetManagerStats(c *gin.Context) {
	var stats ManagerStats

	// One transaction so the stock counts and order counts come from
	// the same snapshot.
	err := h.Store.WithinTx(c.Request.Context(), func(tx store.Tx) error {
		summary, err := tx.Inventory().Summary(c.Request.Context())
		if err != nil {
			return err
		}
		stats.Stock = *summary

		if stats.PendingPayment, err = tx.Orders().CountByStatus(c.Request.Context(), models.OrderStatusPendingPayment); err != nil {
			return err
		}
		if stats.Processing, err = tx.Orders().CountByStatus(c.Request.Context(), models.OrderStatusProcessing); err != nil {
			return err
		}
		if stats.Shipped, err = tx.Orders().CountByStatus(c.Request.Context(), models.OrderStatusShipped); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
