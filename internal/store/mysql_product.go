package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

type mysqlProductRepo struct {
	tx *sql.Tx
}

const productColumns = `id, supplier_id, sku, name, description, price, stock_quantity, status, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.SupplierID, &p.SKU, &p.Name, &p.Description,
		&p.Price, &p.StockQuantity, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mysqlProductRepo) GetByID(ctx context.Context, id int64, lock bool) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	if lock {
		query += " FOR UPDATE"
	}
	p, err := scanProduct(r.tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (r *mysqlProductRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	if len(ids) == 0 {
		return map[int64]*models.Product{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (r *mysqlProductRepo) Create(ctx context.Context, p *models.Product) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO products
		(supplier_id, sku, name, description, price, stock_quantity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SupplierID, p.SKU, p.Name, p.Description,
		p.Price, p.StockQuantity, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	return nil
}

func (r *mysqlProductRepo) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE products SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update product status: %w", err)
	}
	return nil
}

func (r *mysqlProductRepo) SyncStockQuantity(ctx context.Context, productID int64, quantity int) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, time.Now(), productID,
	)
	if err != nil {
		return fmt.Errorf("sync product stock counter: %w", err)
	}
	return nil
}
