package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/orbitcart-backend/internal/handlers"
	"github.com/orbitcart/orbitcart-backend/internal/middleware"
	"github.com/orbitcart/orbitcart-backend/internal/models"
)

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register/dropshipper", h.RegisterDropshipper)
		v1.POST("/register/supplier", h.RegisterSupplier)
		v1.POST("/register/courier", h.RegisterCourier)
		v1.POST("/login", h.Login)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Supplier Product Intake ---
			supplier := auth.Group("/")
			supplier.Use(middleware.RequireRole(h.DB, models.RoleSupplier))
			{
				supplier.POST("/products", h.CreateProduct)
			}

			// --- Shipment routes shared by couriers and managers ---
			shipmentActors := auth.Group("/")
			shipmentActors.Use(middleware.RequireRole(h.DB, models.RoleCourier, models.RoleManager, models.RoleAdministrator))
			{
				shipmentActors.GET("/shipments/:id", h.GetShipment)
				shipmentActors.PATCH("/shipments/:id/status", h.TransitionShipment)
			}
		}

		// --- Dropshipper-Only Routes ---
		dropshipper := v1.Group("/dropshipper")
		dropshipper.Use(middleware.AuthMiddleware())
		dropshipper.Use(middleware.RequireRole(h.DB, models.RoleDropshipper))
		{
			dropshipper.POST("/checkout", h.Checkout)
			dropshipper.GET("/orders", h.GetMyOrders)
			dropshipper.GET("/orders/:id", h.GetOrderDetails)
		}

		// --- Courier-Only Routes ---
		courier := v1.Group("/courier")
		courier.Use(middleware.AuthMiddleware())
		courier.Use(middleware.RequireRole(h.DB, models.RoleCourier))
		{
			courier.GET("/shipments", h.GetMyShipments)
		}

		// --- Manager-Only Routes ---
		manager := v1.Group("/manager")
		manager.Use(middleware.AuthMiddleware())
		manager.Use(middleware.RequireRole(h.DB, models.RoleManager, models.RoleAdministrator))
		{
			manager.POST("/inventory", h.EnsureInventoryRecord)
			manager.POST("/inventory/:product_id/adjust", h.AdjustInventory)
			manager.PATCH("/inventory/:product_id/threshold", h.UpdateInventoryThreshold)
			manager.GET("/inventory/summary", h.GetInventorySummary)
			manager.GET("/inventory/:product_id/adjustments", h.GetInventoryAdjustments)

			manager.PATCH("/orders/:id/status", h.UpdateOrderStatus)
			manager.POST("/orders/:id/tracking", h.RecordOrderTracking)

			manager.POST("/shipments", h.CreateShipment)
			manager.PATCH("/shipments/:id/reassign", h.ReassignShipment)

			manager.PATCH("/products/:id/approve", h.ApproveProduct)
			manager.GET("/dashboard-stats", h.GetManagerStats)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware())
		admin.Use(middleware.RequireRole(h.DB, models.RoleAdministrator))
		{
			admin.POST("/register/manager", h.CreateManager)
		}
	}

	return router
}
