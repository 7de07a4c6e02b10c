package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/orbitcart/orbitcart-backend/internal/models"
)

type mysqlUserRepo struct {
	tx *sql.Tx
}

const userColumns = `id, role, status, email, password_hash, full_name, phone_number, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Role, &u.Status, &u.Email, &u.PasswordHash,
		&u.FullName, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mysqlUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (r *mysqlUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}

func (r *mysqlUserRepo) Create(ctx context.Context, u *models.User) error {
	result, err := r.tx.ExecContext(ctx, `
		INSERT INTO users (role, status, email, password_hash, full_name, phone_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Role, u.Status, u.Email, u.PasswordHash, u.FullName, u.PhoneNumber, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}
