package store

import (
	"context"
	"errors"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

// ErrDuplicateKey is returned when an insert violates a storage-level
// uniqueness constraint (duplicate shipment order, duplicate email,
// duplicate inventory record).
var ErrDuplicateKey = errors.New("store: duplicate key")

// Store opens transactional scopes against the persistent store. Every
// core operation runs inside WithinTx so that a failure on any step
// rolls back the whole operation.
type Store interface {
	// WithinTx runs fn inside one transaction. It commits when fn
	// returns nil and rolls back on error or panic; the commit error,
	// if any, is returned to the caller.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the per-entity repositories bound to one open transaction.
// Repositories never reach across entities; cross-entity work is
// composed by the services that hold a Tx.
type Tx interface {
	Inventory() InventoryRepository
	Products() ProductRepository
	Orders() OrderRepository
	Shipments() ShipmentRepository
	Users() UserRepository
}

// InventoryRepository owns inventory_records and the append-only
// inventory_adjustments log.
type InventoryRepository interface {
	// GetByProductID returns nil, nil when no record exists. With
	// lock=true the row is read under an exclusive lock held until the
	// transaction ends.
	GetByProductID(ctx context.Context, productID int64, lock bool) (*models.InventoryRecord, error)
	Create(ctx context.Context, rec *models.InventoryRecord) error
	SaveQuantity(ctx context.Context, rec *models.InventoryRecord) error
	SaveThreshold(ctx context.Context, rec *models.InventoryRecord) error

	// DecrementIfAvailable applies a compare-and-set decrement: it
	// succeeds only if quantity still covers qty at write time.
	DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error)
	IncrementQuantity(ctx context.Context, productID int64, qty int) error

	AppendAdjustment(ctx context.Context, adj *models.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, recordID int64) ([]models.InventoryAdjustment, error)

	// Summary counts all records in one consistent snapshot.
	Summary(ctx context.Context) (*models.StockSummary, error)
}

// ProductRepository owns the products catalog rows, including the
// legacy duplicate stock counter mirrored from the ledger.
type ProductRepository interface {
	// GetByID returns nil, nil when the product does not exist.
	GetByID(ctx context.Context, id int64, lock bool) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	SetStatus(ctx context.Context, id int64, status string) error

	// SyncStockQuantity rewrites the legacy counter to the ledger
	// quantity. Called only by stock-moving paths, in their transaction.
	SyncStockQuantity(ctx context.Context, productID int64, quantity int) error
}

// OrderRepository owns orders, order_items and order_status_history.
// Items and history are append-only.
type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	InsertItem(ctx context.Context, item *models.OrderItem) error
	AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error

	// GetByID returns nil, nil when the order does not exist.
	GetByID(ctx context.Context, id int64, lock bool) (*models.Order, error)
	SetStatus(ctx context.Context, id int64, status models.OrderStatus) error

	ListItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	ListHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)

	// ListStaleIDs returns ids of orders sitting in status since before
	// cutoff, oldest first.
	ListStaleIDs(ctx context.Context, status models.OrderStatus, cutoff time.Time) ([]int64, error)
	CountByStatus(ctx context.Context, status models.OrderStatus) (int, error)
}

// ShipmentRepository owns shipments and their append-only event log.
type ShipmentRepository interface {
	// Create returns ErrDuplicateKey when a shipment already exists for
	// the order (UNIQUE key on order_id).
	Create(ctx context.Context, s *models.Shipment) error
	// GetByID returns nil, nil when the shipment does not exist.
	GetByID(ctx context.Context, id int64, lock bool) (*models.Shipment, error)
	GetByOrderID(ctx context.Context, orderID int64) (*models.Shipment, error)
	Save(ctx context.Context, s *models.Shipment) error

	AppendEvent(ctx context.Context, e *models.ShipmentEvent) error
	ListEvents(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error)
	ListByAssignee(ctx context.Context, assigneeID int64) ([]models.Shipment, error)
}

// UserRepository owns users. The core only reads users to resolve
// actors and validate fulfillment assignees; account CRUD lives at the
// boundary.
type UserRepository interface {
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Create returns ErrDuplicateKey on a duplicate email.
	Create(ctx context.Context, u *models.User) error
}
