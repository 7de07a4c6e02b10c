package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store over a *sql.DB connection pool.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// WithinTx opens a transaction, runs fn, and commits only when fn
// returns nil. The deferred rollback is a no-op after a successful
// commit, so every exit path (including panics) releases the tx.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&mysqlTx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) Inventory() InventoryRepository { return &mysqlInventoryRepo{tx: t.tx} }
func (t *mysqlTx) Products() ProductRepository    { return &mysqlProductRepo{tx: t.tx} }
func (t *mysqlTx) Orders() OrderRepository        { return &mysqlOrderRepo{tx: t.tx} }
func (t *mysqlTx) Shipments() ShipmentRepository  { return &mysqlShipmentRepo{tx: t.tx} }
func (t *mysqlTx) Users() UserRepository          { return &mysqlUserRepo{tx: t.tx} }

// isDuplicateEntry reports whether err is a MySQL 1062 (ER_DUP_ENTRY),
// i.e. a violated UNIQUE key.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
