package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

//
// --- Product Intake Handlers ---
//
// The catalog proper is a separate surface; these two handlers exist
// because orders need a purchasable product row with an authoritative
// price, and approval is the moment a product gets its ledger record.
//

// ProductInput defines the JSON for creating a draft product.
type ProductInput struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	InitialStock int     `json:"initialStock" binding:"gte=0"`
}

// CreateProduct is the handler for POST /v1/products (supplier-only).
// Products start as drafts and are not purchasable until approved.
func (h *Handlers) CreateProduct(c *gin.Context) {
	supplierID := currentUserID(c)

	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	product := &models.Product{
		SupplierID:    supplierID,
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.InitialStock,
		Status:        models.ProductStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// SKU is derived from the name; the supplier+timestamp suffix keeps
	// it unique across suppliers with identical product names.
	product.SKU = fmt.Sprintf("%s-%d-%d", slug.Make(input.Name), supplierID, now.Unix())

	err := h.Store.WithinTx(c.Request.Context(), func(tx store.Tx) error {
		return tx.Products().Create(c.Request.Context(), product)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// ApproveProduct is the handler for PATCH /v1/manager/products/:id/approve.
// Publishing also seeds the stock ledger record with the draft's
// initial stock, so the product is sellable the moment it goes live.
func (h *Handlers) ApproveProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	var product *models.Product
	err = h.Store.WithinTx(c.Request.Context(), func(tx store.Tx) error {
		p, err := tx.Products().GetByID(c.Request.Context(), productID, true)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		if err := tx.Products().SetStatus(c.Request.Context(), productID, models.ProductStatusPublished); err != nil {
			return err
		}
		p.Status = models.ProductStatusPublished
		product = p
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve product"})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if _, err := h.Ledger.EnsureRecord(c.Request.Context(), product.ID, product.StockQuantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize stock record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}
