package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/order"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

var (
	ErrShipmentNotFound  = errors.New("shipment not found")
	ErrAssigneeNotFound  = errors.New("assignee not found")
	ErrDuplicateShipment = errors.New("order already has a shipment")
	ErrUnknownStatus     = errors.New("unknown shipment status")
)

// InvalidAssigneeError is returned when the proposed assignee exists
// but lacks the fulfillment-agent capability.
type InvalidAssigneeError struct {
	UserID int64
	Role   string
}

func (e *InvalidAssigneeError) Error() string {
	return fmt.Sprintf("user %d cannot be assigned shipments (role %s)", e.UserID, e.Role)
}

// OrderStateError is returned when the order is not in a state that
// allows shipment creation.
type OrderStateError struct {
	OrderID int64
	Status  models.OrderStatus
}

func (e *OrderStateError) Error() string {
	return fmt.Sprintf("order %d is not ready for shipment (status %s)", e.OrderID, e.Status)
}

// ShipmentStateError is returned when an operation is only valid in a
// different shipment state (e.g. reassigning after pickup).
type ShipmentStateError struct {
	ShipmentID int64
	Status     models.ShipmentStatus
}

func (e *ShipmentStateError) Error() string {
	return fmt.Sprintf("shipment %d is not in a state that allows this operation (status %s)",
		e.ShipmentID, e.Status)
}

// InvalidTransitionError reports a target status the shipment state
// machine does not allow from the current status.
type InvalidTransitionError struct {
	Current models.ShipmentStatus
	Target  models.ShipmentStatus
	Allowed []models.ShipmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition shipment from %s to %s (allowed: %v)",
		e.Current, e.Target, e.Allowed)
}

// Service binds shipments to orders and fulfillment agents and drives
// the shipment state machine, logging every change to shipment_events.
type Service struct {
	store  store.Store
	orders *order.Lifecycle
}

func NewService(st store.Store, orders *order.Lifecycle) *Service {
	return &Service{store: st, orders: orders}
}

// Create opens a shipment for a paid or processing order. The UNIQUE
// key on shipments.order_id makes concurrent duplicate creates lose at
// the storage level. Creating against a paid order also moves the order
// to processing, in the same transaction.
func (s *Service) Create(ctx context.Context, orderID, assigneeID int64, trackingNumber string) (*models.Shipment, error) {
	var out *models.Shipment
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID, true)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: order %d", order.ErrOrderNotFound, orderID)
		}
		if o.Status != models.OrderStatusPaid && o.Status != models.OrderStatusProcessing {
			return &OrderStateError{OrderID: orderID, Status: o.Status}
		}

		assignee, err := s.validAssignee(ctx, tx, assigneeID)
		if err != nil {
			return err
		}

		if trackingNumber == "" {
			trackingNumber = generateTrackingNumber()
		}

		now := time.Now()
		sh := &models.Shipment{
			OrderID:        orderID,
			AssigneeID:     assignee.ID,
			Status:         models.ShipmentStatusAssigned,
			TrackingNumber: trackingNumber,
			AssignedAt:     now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Shipments().Create(ctx, sh); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return fmt.Errorf("%w: order %d", ErrDuplicateShipment, orderID)
			}
			return err
		}

		event := &models.ShipmentEvent{
			ShipmentID: sh.ID,
			Status:     models.ShipmentStatusAssigned,
			Note:       fmt.Sprintf("assigned to courier %d", assignee.ID),
			CreatedAt:  now,
		}
		if err := tx.Shipments().AppendEvent(ctx, event); err != nil {
			return err
		}

		if o.Status == models.OrderStatusPaid {
			if _, err := s.orders.TransitionTx(ctx, tx, orderID, models.OrderStatusProcessing, "shipment created", nil); err != nil {
				return err
			}
		}

		out = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reassign hands the shipment to another courier. Only allowed while
// the shipment is still in the assigned state.
func (s *Service) Reassign(ctx context.Context, shipmentID, newAssigneeID int64) (*models.Shipment, error) {
	var out *models.Shipment
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		sh, err := tx.Shipments().GetByID(ctx, shipmentID, true)
		if err != nil {
			return err
		}
		if sh == nil {
			return fmt.Errorf("%w: shipment %d", ErrShipmentNotFound, shipmentID)
		}
		if sh.Status != models.ShipmentStatusAssigned {
			return &ShipmentStateError{ShipmentID: shipmentID, Status: sh.Status}
		}

		assignee, err := s.validAssignee(ctx, tx, newAssigneeID)
		if err != nil {
			return err
		}

		now := time.Now()
		sh.AssigneeID = assignee.ID
		sh.AssignedAt = now
		if err := tx.Shipments().Save(ctx, sh); err != nil {
			return err
		}

		event := &models.ShipmentEvent{
			ShipmentID: sh.ID,
			Status:     sh.Status,
			Note:       fmt.Sprintf("reassigned to courier %d", assignee.ID),
			CreatedAt:  now,
		}
		if err := tx.Shipments().AppendEvent(ctx, event); err != nil {
			return err
		}

		out = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transition validates and applies one shipment status change, logging
// it to shipment_events. Delivery stamps deliveredAt.
func (s *Service) Transition(ctx context.Context, shipmentID int64, target models.ShipmentStatus, note string) (*models.Shipment, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}

	var out *models.Shipment
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		sh, err := tx.Shipments().GetByID(ctx, shipmentID, true)
		if err != nil {
			return err
		}
		if sh == nil {
			return fmt.Errorf("%w: shipment %d", ErrShipmentNotFound, shipmentID)
		}

		if !sh.Status.CanTransitionTo(target) {
			return &InvalidTransitionError{
				Current: sh.Status,
				Target:  target,
				Allowed: sh.Status.AllowedNext(),
			}
		}

		now := time.Now()
		sh.Status = target
		if target == models.ShipmentStatusDelivered {
			sh.DeliveredAt = &now
		}
		if err := tx.Shipments().Save(ctx, sh); err != nil {
			return err
		}

		event := &models.ShipmentEvent{
			ShipmentID: sh.ID,
			Status:     target,
			Note:       note,
			CreatedAt:  now,
		}
		if err := tx.Shipments().AppendEvent(ctx, event); err != nil {
			return err
		}

		out = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a shipment by id.
func (s *Service) Get(ctx context.Context, shipmentID int64) (*models.Shipment, error) {
	var out *models.Shipment
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		sh, err := tx.Shipments().GetByID(ctx, shipmentID, false)
		if err != nil {
			return err
		}
		if sh == nil {
			return fmt.Errorf("%w: shipment %d", ErrShipmentNotFound, shipmentID)
		}
		out = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Events returns the append-only status log for a shipment.
func (s *Service) Events(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error) {
	var out []models.ShipmentEvent
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		sh, err := tx.Shipments().GetByID(ctx, shipmentID, false)
		if err != nil {
			return err
		}
		if sh == nil {
			return fmt.Errorf("%w: shipment %d", ErrShipmentNotFound, shipmentID)
		}
		out, err = tx.Shipments().ListEvents(ctx, shipmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByAssignee returns the shipments currently assigned to a courier.
func (s *Service) ListByAssignee(ctx context.Context, assigneeID int64) ([]models.Shipment, error) {
	var out []models.Shipment
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		shipments, err := tx.Shipments().ListByAssignee(ctx, assigneeID)
		if err != nil {
			return err
		}
		out = shipments
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) validAssignee(ctx context.Context, tx store.Tx, userID int64) (*models.User, error) {
	u, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %d", ErrAssigneeNotFound, userID)
	}
	if !u.CanFulfil() {
		return nil, &InvalidAssigneeError{UserID: userID, Role: u.Role}
	}
	return u, nil
}

func generateTrackingNumber() string {
	return "ORB-" + strings.ToUpper(uuid.NewString()[:13])
}
