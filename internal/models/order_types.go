package models

import "time"

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
	OrderStatusFailed         OrderStatus = "failed"
)

// orderTransitions is the allowed-next table for the order state machine.
// cancelled and refunded are terminal; failed keeps a retry path back
// into processing.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusPaid:           {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusDelivered, OrderStatusFailed},
	OrderStatusDelivered:      {OrderStatusRefunded},
	OrderStatusCancelled:      {},
	OrderStatusRefunded:       {},
	OrderStatusFailed:         {OrderStatusProcessing},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine allows moving from s
// to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// AllowedNext returns the set of states reachable from s in one step.
func (s OrderStatus) AllowedNext() []OrderStatus {
	return orderTransitions[s]
}

// Order is the model for the 'orders' table. TotalAmount is minor-unit
// currency (cents), recomputed from the catalog at creation time and
// never taken from caller input.
type Order struct {
	ID              int64       `json:"id" db:"id"`
	Reference       string      `json:"reference" db:"reference"`
	UserID          int64       `json:"userId" db:"user_id"`
	Status          OrderStatus `json:"status" db:"status"`
	TotalAmount     int64       `json:"totalAmount" db:"total_amount"`
	ShippingAddress string      `json:"shippingAddress" db:"shipping_address"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`

	// Populated by the lifecycle/read paths, not stored on the row.
	Items   []OrderItem          `json:"items,omitempty" db:"-"`
	History []OrderStatusHistory `json:"history,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table. UnitPrice is the
// minor-unit catalog price frozen at purchase time; rows are immutable
// after creation.
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice int64     `json:"unitPrice" db:"unit_price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// OrderStatusHistory is the model for the 'order_status_history' table.
// Append-only: one row per transition, including the initial creation
// and tracking-only notes.
type OrderStatusHistory struct {
	ID        int64       `json:"id" db:"id"`
	OrderID   int64       `json:"orderId" db:"order_id"`
	Status    OrderStatus `json:"status" db:"status"`
	Note      string      `json:"note,omitempty" db:"note"`
	ActorID   *int64      `json:"actorId,omitempty" db:"actor_id"` // nil = system
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}
