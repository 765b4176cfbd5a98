package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres repository backed by the orders, order_items and
// shipping_addresses tables.
type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

const (
	insertOpenOrderQuery = `
		INSERT INTO orders (customer_id)
		VALUES ($1)
		ON CONFLICT (customer_id) WHERE NOT complete DO NOTHING
	`
	getOpenOrderQuery = `
		SELECT id, customer_id, date_ordered, complete, transaction_id
		FROM orders
		WHERE customer_id = $1 AND NOT complete
	`
	getOrderByIDQuery = `
		SELECT id, customer_id, date_ordered, complete, transaction_id
		FROM orders
		WHERE id = $1
	`
	lockOrderQuery = `
		SELECT complete
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`
	listItemsQuery = `
		SELECT id, order_id, product_id, quantity, date_added
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	ensureItemQuery = `
		INSERT INTO order_items (order_id, product_id, quantity)
		VALUES ($1, $2, 0)
		ON CONFLICT (order_id, product_id) DO NOTHING
	`
	incrementItemQuery = `
		UPDATE order_items
		SET quantity = quantity + $3
		WHERE order_id = $1 AND product_id = $2
		RETURNING id, order_id, product_id, quantity, date_added
	`
	deleteItemQuery = `
		DELETE FROM order_items
		WHERE id = $1
	`
	clearItemsQuery = `
		DELETE FROM order_items
		WHERE order_id = $1
	`
	insertItemQuery = `
		INSERT INTO order_items (order_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, order_id, product_id, quantity, date_added
	`
	saveOrderQuery = `
		UPDATE orders
		SET transaction_id = $2, complete = $3
		WHERE id = $1 AND NOT complete
		RETURNING id, customer_id, date_ordered, complete, transaction_id
	`
	insertShippingQuery = `
		INSERT INTO shipping_addresses (customer_id, order_id, address, city, state, zipcode)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	listShippingQuery = `
		SELECT id, customer_id, order_id, address, city, state, zipcode, date_added
		FROM shipping_addresses
		WHERE order_id = $1
		ORDER BY id
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepository) GetOrCreateOpen(ctx context.Context, customerID int) (Order, error) {
	return getOrCreateOpen(ctx, r.db, customerID)
}

func getOrCreateOpen(ctx context.Context, q queryer, customerID int) (Order, error) {
	if _, err := q.ExecContext(ctx, insertOpenOrderQuery, customerID); err != nil {
		return Order{}, fmt.Errorf("create open order for customer %d: %w", customerID, mapError(err))
	}
	o, err := scanOrder(q.QueryRowContext(ctx, getOpenOrderQuery, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// completed between insert and select
			return Order{}, ErrConflict
		}
		return Order{}, fmt.Errorf("get open order for customer %d: %w", customerID, err)
	}
	return o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, orderID int) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, listItemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items of order %d: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) AdjustItem(ctx context.Context, orderID, productID, delta int) (item Item, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockOpenOrder(ctx, tx, orderID); err != nil {
		return Item{}, err
	}
	if _, err = tx.ExecContext(ctx, ensureItemQuery, orderID, productID); err != nil {
		return Item{}, fmt.Errorf("ensure item %d/%d: %w", orderID, productID, mapError(err))
	}
	item, err = scanItem(tx.QueryRowContext(ctx, incrementItemQuery, orderID, productID, delta))
	if err != nil {
		return Item{}, fmt.Errorf("adjust item %d/%d: %w", orderID, productID, err)
	}
	if item.Quantity <= 0 {
		if _, err = tx.ExecContext(ctx, deleteItemQuery, item.ID); err != nil {
			return Item{}, fmt.Errorf("delete item %d: %w", item.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *PostgresRepository) OpenWithItems(ctx context.Context, customerID int, items []Item) (o Order, out []Item, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	o, err = getOrCreateOpen(ctx, tx, customerID)
	if err != nil {
		return Order{}, nil, err
	}
	if _, err = tx.ExecContext(ctx, clearItemsQuery, o.ID); err != nil {
		return Order{}, nil, fmt.Errorf("clear items of order %d: %w", o.ID, err)
	}

	out = make([]Item, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		var created Item
		created, err = scanItem(tx.QueryRowContext(ctx, insertItemQuery, o.ID, it.ProductID, it.Quantity))
		if err != nil {
			err = fmt.Errorf("insert item %d/%d: %w", o.ID, it.ProductID, mapError(err))
			return Order{}, nil, err
		}
		out = append(out, created)
	}

	if err = tx.Commit(); err != nil {
		return Order{}, nil, err
	}
	return o, out, nil
}

func (r *PostgresRepository) Save(ctx context.Context, o Order, addr *ShippingAddress) (saved Order, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	saved, err = scanOrder(tx.QueryRowContext(ctx, saveOrderQuery, o.ID, o.TransactionID, o.Complete))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = closedOrMissing(ctx, tx, o.ID)
			return Order{}, err
		}
		return Order{}, fmt.Errorf("save order %d: %w", o.ID, err)
	}

	if addr != nil {
		if _, err = tx.ExecContext(ctx, insertShippingQuery,
			addr.CustomerID, saved.ID, addr.Address, addr.City, addr.State, addr.Zipcode,
		); err != nil {
			return Order{}, fmt.Errorf("insert shipping address for order %d: %w", saved.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return Order{}, err
	}
	return saved, nil
}

func (r *PostgresRepository) ListShippingAddresses(ctx context.Context, orderID int) ([]ShippingAddress, error) {
	rows, err := r.db.QueryContext(ctx, listShippingQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("list shipping addresses of order %d: %w", orderID, err)
	}
	defer rows.Close()

	out := make([]ShippingAddress, 0)
	for rows.Next() {
		var a ShippingAddress
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.OrderID, &a.Address, &a.City, &a.State, &a.Zipcode, &a.DateAdded); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func lockOpenOrder(ctx context.Context, tx *sql.Tx, orderID int) error {
	var complete bool
	if err := tx.QueryRowContext(ctx, lockOrderQuery, orderID).Scan(&complete); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock order %d: %w", orderID, err)
	}
	if complete {
		return ErrOrderClosed
	}
	return nil
}

func closedOrMissing(ctx context.Context, tx *sql.Tx, orderID int) error {
	if err := lockOpenOrder(ctx, tx, orderID); err != nil {
		return err
	}
	return ErrConflict
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func scanOrder(scanner rowScanner) (Order, error) {
	var o Order
	if err := scanner.Scan(&o.ID, &o.CustomerID, &o.DateOrdered, &o.Complete, &o.TransactionID); err != nil {
		return Order{}, err
	}
	return o, nil
}

func scanItem(scanner rowScanner) (Item, error) {
	var it Item
	if err := scanner.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.DateAdded); err != nil {
		return Item{}, err
	}
	return it, nil
}
