package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/orbitcart-backend/internal/auth"
	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

//
// --- Auth Handlers (Public) ---
//

// RegisterInput defines the JSON for account registration.
type RegisterInput struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FullName    string `json:"fullName" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterDropshipper is the handler for POST /v1/register/dropshipper
func (h *Handlers) RegisterDropshipper(c *gin.Context) {
	h.registerWithRole(c, models.RoleDropshipper)
}

// RegisterSupplier is the handler for POST /v1/register/supplier
func (h *Handlers) RegisterSupplier(c *gin.Context) {
	h.registerWithRole(c, models.RoleSupplier)
}

// RegisterCourier is the handler for POST /v1/register/courier
func (h *Handlers) RegisterCourier(c *gin.Context) {
	h.registerWithRole(c, models.RoleCourier)
}

// CreateManager is the handler for POST /v1/admin/register/manager.
// Manager accounts cannot self-register; only administrators mint them.
func (h *Handlers) CreateManager(c *gin.Context) {
	h.registerWithRole(c, models.RoleManager)
}

func (h *Handlers) registerWithRole(c *gin.Context, role string) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	now := time.Now()
	user := &models.User{
		Role:         role,
		Status:       "active",
		Email:        input.Email,
		PasswordHash: password.Hash,
		FullName:     input.FullName,
		PhoneNumber:  input.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := h.Store.WithinTx(c.Request.Context(), func(tx store.Tx) error {
		return tx.Users().Create(c.Request.Context(), user)
	})
	if err != nil {
		if err == store.ErrDuplicateKey {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// LoginInput defines the JSON for POST /v1/login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user *models.User
	err := h.Store.WithinTx(c.Request.Context(), func(tx store.Tx) error {
		u, err := tx.Users().GetByEmail(c.Request.Context(), input.Email)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil || !matches {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
