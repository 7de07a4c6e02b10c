package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

type mysqlInventoryRepo struct {
	tx *sql.Tx
}

func (r *mysqlInventoryRepo) GetByProductID(ctx context.Context, productID int64, lock bool) (*models.InventoryRecord, error) {
	query := `
		SELECT id, product_id, quantity, low_stock_threshold, last_adjusted_at, created_at, updated_at
		FROM inventory_records WHERE product_id = ?`
	if lock {
		query += " FOR UPDATE"
	}

	var rec models.InventoryRecord
	err := r.tx.QueryRowContext(ctx, query, productID).Scan(
		&rec.ID, &rec.ProductID, &rec.Quantity, &rec.LowStockThreshold,
		&rec.LastAdjustedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory record: %w", err)
	}
	return &rec, nil
}

func (r *mysqlInventoryRepo) Create(ctx context.Context, rec *models.InventoryRecord) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO inventory_records
		(product_id, quantity, low_stock_threshold, last_adjusted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ProductID, rec.Quantity, rec.LowStockThreshold,
		rec.LastAdjustedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert inventory record: %w", err)
	}
	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("inventory record id: %w", err)
	}
	return nil
}

func (r *mysqlInventoryRepo) SaveQuantity(ctx context.Context, rec *models.InventoryRecord) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE inventory_records
		SET quantity = ?, last_adjusted_at = ?, updated_at = ?
		WHERE id = ?`,
		rec.Quantity, rec.LastAdjustedAt, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory quantity: %w", err)
	}
	return nil
}

func (r *mysqlInventoryRepo) SaveThreshold(ctx context.Context, rec *models.InventoryRecord) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE inventory_records SET low_stock_threshold = ?, updated_at = ? WHERE id = ?`,
		rec.LowStockThreshold, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory threshold: %w", err)
	}
	return nil
}

// DecrementIfAvailable is the compare-and-set reservation used by order
// creation: the decrement only lands if quantity still covers qty at
// write time, so a concurrent reservation that drained the stock makes
// this return false instead of going negative.
func (r *mysqlInventoryRepo) DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error) {
	now := time.Now()
	result, err := r.tx.ExecContext(ctx, `
		UPDATE inventory_records
		SET quantity = quantity - ?, last_adjusted_at = ?, updated_at = ?
		WHERE product_id = ? AND quantity >= ?`,
		qty, now, now, productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("conditional decrement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("conditional decrement rows: %w", err)
	}
	return rows > 0, nil
}

func (r *mysqlInventoryRepo) IncrementQuantity(ctx context.Context, productID int64, qty int) error {
	now := time.Now()
	_, err := r.tx.ExecContext(ctx, `
		UPDATE inventory_records
		SET quantity = quantity + ?, last_adjusted_at = ?, updated_at = ?
		WHERE product_id = ?`,
		qty, now, now, productID,
	)
	if err != nil {
		return fmt.Errorf("increment quantity: %w", err)
	}
	return nil
}

func (r *mysqlInventoryRepo) AppendAdjustment(ctx context.Context, adj *models.InventoryAdjustment) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO inventory_adjustments (record_id, delta, reason, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		adj.RecordID, adj.Delta, adj.Reason, adj.ActorID, adj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	adj.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("adjustment id: %w", err)
	}
	return nil
}

func (r *mysqlInventoryRepo) ListAdjustments(ctx context.Context, recordID int64) ([]models.InventoryAdjustment, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, record_id, delta, reason, actor_id, created_at
		FROM inventory_adjustments WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []models.InventoryAdjustment
	for rows.Next() {
		var adj models.InventoryAdjustment
		if err := rows.Scan(&adj.ID, &adj.RecordID, &adj.Delta, &adj.Reason, &adj.ActorID, &adj.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, rows.Err()
}

// Summary aggregates in a single statement so all counts come from one
// snapshot; a record adjusted mid-scan can never be counted twice.
func (r *mysqlInventoryRepo) Summary(ctx context.Context) (*models.StockSummary, error) {
	var s models.StockSummary
	err := r.tx.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN quantity > 0 AND quantity <= low_stock_threshold THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN quantity <= 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN quantity > low_stock_threshold THEN 1 ELSE 0 END), 0)
		FROM inventory_records`,
	).Scan(&s.Total, &s.Low, &s.Out, &s.InStock)
	if err != nil {
		return nil, fmt.Errorf("query stock summary: %w", err)
	}
	return &s, nil
}
