package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumns = []string{"id", "order_id", "product_id", "quantity", "date_added"}
var orderColumns = []string{"id", "customer_id", "date_ordered", "complete", "transaction_id"}

func TestInMemory_OneOpenOrderPerCustomer(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first, err := repo.GetOrCreateOpen(ctx, 1)
	require.NoError(t, err)
	again, err := repo.GetOrCreateOpen(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other, err := repo.GetOrCreateOpen(ctx, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	first.Complete = true
	first.TransactionID = "1700000000.5"
	_, err = repo.Save(ctx, first, nil)
	require.NoError(t, err)

	next, err := repo.GetOrCreateOpen(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)
	assert.False(t, next.Complete)
}

func TestInMemory_AdjustItem(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	o, _ := repo.GetOrCreateOpen(ctx, 1)

	it, err := repo.AdjustItem(ctx, o.ID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, it.Quantity)
	it, err = repo.AdjustItem(ctx, o.ID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, it.Quantity)

	items, _ := repo.ListItems(ctx, o.ID)
	require.Len(t, items, 1)

	_, err = repo.AdjustItem(ctx, o.ID, 10, -1)
	require.NoError(t, err)
	it, err = repo.AdjustItem(ctx, o.ID, 10, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, it.Quantity)

	items, _ = repo.ListItems(ctx, o.ID)
	assert.Empty(t, items)

	// removing an absent product never leaves a row behind
	it, err = repo.AdjustItem(ctx, o.ID, 11, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, it.Quantity)
	items, _ = repo.ListItems(ctx, o.ID)
	assert.Empty(t, items)
}

func TestInMemory_CompletedOrderIsImmutable(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	o, _ := repo.GetOrCreateOpen(ctx, 1)
	o.Complete = true
	_, err := repo.Save(ctx, o, &ShippingAddress{CustomerID: 1, Address: "1 Main", City: "X", State: "Y", Zipcode: "1"})
	require.NoError(t, err)

	_, err = repo.AdjustItem(ctx, o.ID, 10, 1)
	assert.ErrorIs(t, err, ErrOrderClosed)
	_, err = repo.Save(ctx, o, nil)
	assert.ErrorIs(t, err, ErrOrderClosed)

	addrs, _ := repo.ListShippingAddresses(ctx, o.ID)
	require.Len(t, addrs, 1)
	assert.Equal(t, o.ID, addrs[0].OrderID)
}

func TestInMemory_OpenWithItemsReplacesItems(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	o, _ := repo.GetOrCreateOpen(ctx, 3)
	_, _ = repo.AdjustItem(ctx, o.ID, 1, 5)

	got, items, err := repo.OpenWithItems(ctx, 3, []Item{{ProductID: 2, Quantity: 2}, {ProductID: 4, Quantity: 0}})
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ProductID)

	stored, _ := repo.ListItems(ctx, o.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Quantity)
}

func TestPostgres_AdjustItem_DeletesAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT complete\\s+FROM orders").WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"complete"}).AddRow(false))
	mock.ExpectExec("INSERT INTO order_items .* ON CONFLICT \\(order_id, product_id\\) DO NOTHING").
		WithArgs(4, 9).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("UPDATE order_items\\s+SET quantity = quantity \\+ \\$3").WithArgs(4, 9, -1).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(21, 4, 9, 0, time.Now()))
	mock.ExpectExec("DELETE FROM order_items\\s+WHERE id = \\$1").WithArgs(21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	it, err := repo.AdjustItem(context.Background(), 4, 9, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, it.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AdjustItem_ClosedOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT complete\\s+FROM orders").WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"complete"}).AddRow(true))
	mock.ExpectRollback()

	_, err = repo.AdjustItem(context.Background(), 4, 9, 1)
	assert.ErrorIs(t, err, ErrOrderClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveWithShipping(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders\\s+SET transaction_id = \\$2, complete = \\$3").WithArgs(7, "1.5", true).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(7, 2, now, true, "1.5"))
	mock.ExpectExec("INSERT INTO shipping_addresses").WithArgs(2, 7, "1 Main", "Town", "ST", "12345").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	saved, err := repo.Save(context.Background(), Order{ID: 7, CustomerID: 2, Complete: true, TransactionID: "1.5"},
		&ShippingAddress{CustomerID: 2, Address: "1 Main", City: "Town", State: "ST", Zipcode: "12345"})
	require.NoError(t, err)
	assert.True(t, saved.Complete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveRollsBackWhenShippingFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WithArgs(7, "1.5", true).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(7, 2, time.Now(), true, "1.5"))
	mock.ExpectExec("INSERT INTO shipping_addresses").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err = repo.Save(context.Background(), Order{ID: 7, Complete: true, TransactionID: "1.5"},
		&ShippingAddress{CustomerID: 2, Address: "a", City: "b", State: "c", Zipcode: "d"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveAlreadyComplete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WillReturnRows(sqlmock.NewRows(orderColumns))
	mock.ExpectQuery("SELECT complete\\s+FROM orders").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"complete"}).AddRow(true))
	mock.ExpectRollback()

	_, err = repo.Save(context.Background(), Order{ID: 7, Complete: true}, nil)
	assert.ErrorIs(t, err, ErrOrderClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OpenWithItemsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("WHERE customer_id = \\$1 AND NOT complete").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(8, 3, time.Now(), false, ""))
	mock.ExpectExec("DELETE FROM order_items\\s+WHERE order_id = \\$1").WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO order_items").WithArgs(8, 1, 2).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, _, err = repo.OpenWithItems(context.Background(), 3, []Item{{ProductID: 1, Quantity: 2}})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
