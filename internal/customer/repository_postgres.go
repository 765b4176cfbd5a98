package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Postgres repository backed by the customers table. A unique index on
// user_id and a partial unique index on email for guests keep get-or-create
// idempotent under concurrent requests.
type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	insertUserCustomerQuery = `
		INSERT INTO customers (user_id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	getCustomerByUserQuery = `
		SELECT id, user_id, name, email, created_at
		FROM customers
		WHERE user_id = $1
	`
	upsertGuestCustomerQuery = `
		INSERT INTO customers (user_id, name, email)
		VALUES (NULL, $1, $2)
		ON CONFLICT (email) WHERE user_id IS NULL
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id, user_id, name, email, created_at
	`
	getCustomerByIDQuery = `
		SELECT id, user_id, name, email, created_at
		FROM customers
		WHERE id = $1
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetOrCreateForUser(ctx context.Context, userID int, name, email string) (Customer, error) {
	if _, err := r.db.ExecContext(ctx, insertUserCustomerQuery, userID, name, email); err != nil {
		return Customer{}, fmt.Errorf("create customer for user %d: %w", userID, err)
	}
	c, err := scanCustomer(r.db.QueryRowContext(ctx, getCustomerByUserQuery, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("get customer for user %d: %w", userID, err)
	}
	return c, nil
}

func (r *PostgresRepository) GetOrCreateGuest(ctx context.Context, email, name string) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, upsertGuestCustomerQuery, name, NormalizeEmail(email)))
	if err != nil {
		return Customer{}, fmt.Errorf("upsert guest customer: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, getCustomerByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func scanCustomer(scanner rowScanner) (Customer, error) {
	var (
		c      Customer
		userID sql.NullInt64
	)
	if err := scanner.Scan(&c.ID, &userID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		return Customer{}, err
	}
	if userID.Valid {
		uid := int(userID.Int64)
		c.UserID = &uid
	}
	return c, nil
}
