package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUnknownStatus = errors.New("unknown order status")
)

// InvalidTransitionError reports a target status that the state machine
// does not allow from the order's current status.
type InvalidTransitionError struct {
	Current models.OrderStatus
	Target  models.OrderStatus
	Allowed []models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s (allowed: %v)",
		e.Current, e.Target, e.Allowed)
}

// Lifecycle moves orders through their status state machine and records
// every transition in the append-only status history.
type Lifecycle struct {
	store store.Store
}

func NewLifecycle(st store.Store) *Lifecycle {
	return &Lifecycle{store: st}
}

// Transition validates and applies one status change, appending exactly
// one history row in the same transaction.
func (l *Lifecycle) Transition(ctx context.Context, orderID int64, target models.OrderStatus, note string, actorID *int64) (*models.Order, error) {
	var out *models.Order
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := l.TransitionTx(ctx, tx, orderID, target, note, actorID)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionTx is Transition running inside a caller-owned transaction.
// Shipment creation uses it so that "shipment created" and "order moved
// to processing" commit together.
func (l *Lifecycle) TransitionTx(ctx context.Context, tx store.Tx, orderID int64, target models.OrderStatus, note string, actorID *int64) (*models.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}

	o, err := tx.Orders().GetByID(ctx, orderID, true)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
	}

	if !o.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{
			Current: o.Status,
			Target:  target,
			Allowed: o.Status.AllowedNext(),
		}
	}

	now := time.Now()
	if err := tx.Orders().SetStatus(ctx, orderID, target); err != nil {
		return nil, err
	}
	h := &models.OrderStatusHistory{
		OrderID:   orderID,
		Status:    target,
		Note:      note,
		ActorID:   actorID,
		CreatedAt: now,
	}
	if err := tx.Orders().AppendHistory(ctx, h); err != nil {
		return nil, err
	}

	o.Status = target
	o.UpdatedAt = now
	if err := loadOrderDetails(ctx, tx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// RecordTrackingUpdate appends a history row describing a carrier
// tracking change without touching the order status.
func (l *Lifecycle) RecordTrackingUpdate(ctx context.Context, orderID int64, carrier, trackingNumber, note string, actorID *int64) (*models.Order, error) {
	var out *models.Order
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID, true)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
		}

		entry := fmt.Sprintf("tracking update: %s %s", carrier, trackingNumber)
		if note != "" {
			entry += " - " + note
		}
		h := &models.OrderStatusHistory{
			OrderID:   orderID,
			Status:    o.Status, // status untouched
			Note:      entry,
			ActorID:   actorID,
			CreatedAt: time.Now(),
		}
		if err := tx.Orders().AppendHistory(ctx, h); err != nil {
			return err
		}

		if err := loadOrderDetails(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns an order with its line items and full status history.
func (l *Lifecycle) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	var out *models.Order
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID, false)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
		}
		if err := loadOrderDetails(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns a user's orders, newest first, without details.
func (l *Lifecycle) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var out []models.Order
	err := l.store.WithinTx(ctx, func(tx store.Tx) error {
		orders, err := tx.Orders().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		out = orders
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadOrderDetails(ctx context.Context, tx store.Tx, o *models.Order) error {
	items, err := tx.Orders().ListItems(ctx, o.ID)
	if err != nil {
		return err
	}
	history, err := tx.Orders().ListHistory(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items = items
	o.History = history
	return nil
}
