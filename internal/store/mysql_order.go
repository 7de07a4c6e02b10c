package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

type mysqlOrderRepo struct {
	tx *sql.Tx
}

const orderColumns = `id, reference, user_id, status, total_amount, shipping_address, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.Reference, &o.UserID, &o.Status, &o.TotalAmount,
		&o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *mysqlOrderRepo) Create(ctx context.Context, o *models.Order) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO orders (reference, user_id, status, total_amount, shipping_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.Reference, o.UserID, o.Status, o.TotalAmount, o.ShippingAddress, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	return nil
}

func (r *mysqlOrderRepo) InsertItem(ctx context.Context, item *models.OrderItem) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	item.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order item id: %w", err)
	}
	return nil
}

func (r *mysqlOrderRepo) AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, note, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		h.OrderID, h.Status, h.Note, h.ActorID, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}
	h.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order history id: %w", err)
	}
	return nil
}

func (r *mysqlOrderRepo) GetByID(ctx context.Context, id int64, lock bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if lock {
		query += " FOR UPDATE"
	}
	o, err := scanOrder(r.tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func (r *mysqlOrderRepo) SetStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *mysqlOrderRepo) ListItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, created_at
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *mysqlOrderRepo) ListHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, order_id, status, note, actor_id, created_at
		FROM order_status_history WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order history: %w", err)
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var h models.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *mysqlOrderRepo) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *mysqlOrderRepo) ListStaleIDs(ctx context.Context, status models.OrderStatus, cutoff time.Time) ([]int64, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT id FROM orders WHERE status = ? AND created_at < ? ORDER BY created_at`, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *mysqlOrderRepo) CountByStatus(ctx context.Context, status models.OrderStatus) (int, error) {
	var count int
	err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}
