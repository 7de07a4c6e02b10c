package models

import "time"

// ShipmentStatus is the closed set of shipment lifecycle states.
type ShipmentStatus string

const (
	ShipmentStatusAssigned  ShipmentStatus = "assigned"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusFailed    ShipmentStatus = "failed"
	ShipmentStatusReturned  ShipmentStatus = "returned"
)

// shipmentTransitions is the allowed-next table for the shipment state
// machine. delivered and returned are terminal; failed may retry into
// in_transit or come back as returned.
var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusAssigned:  {ShipmentStatusInTransit, ShipmentStatusFailed},
	ShipmentStatusInTransit: {ShipmentStatusDelivered, ShipmentStatusFailed},
	ShipmentStatusFailed:    {ShipmentStatusReturned, ShipmentStatusInTransit},
	ShipmentStatusDelivered: {},
	ShipmentStatusReturned:  {},
}

// Valid reports whether s is a known shipment status.
func (s ShipmentStatus) Valid() bool {
	_, ok := shipmentTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine allows moving from s
// to target.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, next := range shipmentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// AllowedNext returns the set of states reachable from s in one step.
func (s ShipmentStatus) AllowedNext() []ShipmentStatus {
	return shipmentTransitions[s]
}

// Shipment is the model for the 'shipments' table. order_id carries a
// UNIQUE key, so at most one shipment can ever exist per order.
type Shipment struct {
	ID             int64          `json:"id" db:"id"`
	OrderID        int64          `json:"orderId" db:"order_id"`
	AssigneeID     int64          `json:"assigneeId" db:"assignee_id"`
	Status         ShipmentStatus `json:"status" db:"status"`
	TrackingNumber string         `json:"trackingNumber" db:"tracking_number"`
	AssignedAt     time.Time      `json:"assignedAt" db:"assigned_at"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

// ShipmentEvent is the model for the 'shipment_events' table, the
// append-only audit log for shipment state.
type ShipmentEvent struct {
	ID         int64          `json:"id" db:"id"`
	ShipmentID int64          `json:"shipmentId" db:"shipment_id"`
	Status     ShipmentStatus `json:"status" db:"status"`
	Note       string         `json:"note,omitempty" db:"note"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}
