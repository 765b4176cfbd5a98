package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	listProductsQuery = `
		SELECT id, name, price, digital, image
		FROM products
		ORDER BY id
	`
	getProductByIDQuery = `
		SELECT id, name, price, digital, image
		FROM products
		WHERE id = $1
	`
	listProductsByIDsQuery = `
		SELECT id, name, price, digital, image
		FROM products
		WHERE id = ANY($1::int[])
		ORDER BY id
	`
	deleteProductsQuery = `DELETE FROM products`
	insertProductQuery  = `
		INSERT INTO products (name, price, digital, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.QueryContext(ctx, listProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *PostgresRepository) Reset(ctx context.Context, products []Product) ([]Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteProductsQuery); err != nil {
		return nil, fmt.Errorf("clear products: %w", err)
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if err := tx.QueryRowContext(ctx, insertProductQuery, p.Name, p.Price, p.Digital, p.Image).Scan(&p.ID); err != nil {
			return nil, fmt.Errorf("insert product %q: %w", p.Name, err)
		}
		out = append(out, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reset: %w", err)
	}
	return out, nil
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(scanner rowScanner) (Product, error) {
	var (
		p     Product
		image sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.Name, &p.Price, &p.Digital, &image); err != nil {
		return Product{}, err
	}
	if image.Valid && image.String != "" {
		p.Image = &image.String
	}
	return p, nil
}
