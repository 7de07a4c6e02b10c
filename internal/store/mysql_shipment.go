package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

type mysqlShipmentRepo struct {
	tx *sql.Tx
}

const shipmentColumns = `id, order_id, assignee_id, status, tracking_number, assigned_at, delivered_at, created_at, updated_at`

func scanShipment(row interface{ Scan(...any) error }) (*models.Shipment, error) {
	var s models.Shipment
	var deliveredAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.OrderID, &s.AssigneeID, &s.Status, &s.TrackingNumber,
		&s.AssignedAt, &deliveredAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deliveredAt.Valid {
		s.DeliveredAt = &deliveredAt.Time
	}
	return &s, nil
}

// Create relies on the UNIQUE key on shipments.order_id: a concurrent
// duplicate create loses the insert race at the storage level, not in
// application logic.
func (r *mysqlShipmentRepo) Create(ctx context.Context, s *models.Shipment) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO shipments
		(order_id, assignee_id, status, tracking_number, assigned_at, delivered_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.OrderID, s.AssigneeID, s.Status, s.TrackingNumber,
		s.AssignedAt, s.DeliveredAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	s.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("shipment id: %w", err)
	}
	return nil
}

func (r *mysqlShipmentRepo) GetByID(ctx context.Context, id int64, lock bool) (*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = ?`
	if lock {
		query += " FOR UPDATE"
	}
	s, err := scanShipment(r.tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shipment: %w", err)
	}
	return s, nil
}

func (r *mysqlShipmentRepo) GetByOrderID(ctx context.Context, orderID int64) (*models.Shipment, error) {
	s, err := scanShipment(r.tx.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE order_id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shipment by order: %w", err)
	}
	return s, nil
}

func (r *mysqlShipmentRepo) Save(ctx context.Context, s *models.Shipment) error {
	s.UpdatedAt = time.Now()
	_, err := r.tx.ExecContext(ctx, `
		UPDATE shipments
		SET assignee_id = ?, status = ?, tracking_number = ?, assigned_at = ?, delivered_at = ?, updated_at = ?
		WHERE id = ?`,
		s.AssigneeID, s.Status, s.TrackingNumber, s.AssignedAt, s.DeliveredAt, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	return nil
}

func (r *mysqlShipmentRepo) AppendEvent(ctx context.Context, e *models.ShipmentEvent) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO shipment_events (shipment_id, status, note, created_at)
		VALUES (?, ?, ?, ?)`,
		e.ShipmentID, e.Status, e.Note, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipment event: %w", err)
	}
	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("shipment event id: %w", err)
	}
	return nil
}

func (r *mysqlShipmentRepo) ListEvents(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, shipment_id, status, note, created_at
		FROM shipment_events WHERE shipment_id = ? ORDER BY id`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query shipment events: %w", err)
	}
	defer rows.Close()

	var events []models.ShipmentEvent
	for rows.Next() {
		var e models.ShipmentEvent
		if err := rows.Scan(&e.ID, &e.ShipmentID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shipment event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *mysqlShipmentRepo) ListByAssignee(ctx context.Context, assigneeID int64) ([]models.Shipment, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE assignee_id = ? ORDER BY created_at DESC`, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("query shipments by assignee: %w", err)
	}
	defer rows.Close()

	var shipments []models.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}
