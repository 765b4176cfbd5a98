package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "username", "email", "password", "created_at"}

func TestPostgres_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("INSERT INTO users").WithArgs("alice", "alice@example.com", "hash").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "alice@example.com", "hash", time.Now()))
	mock.ExpectQuery("INSERT INTO users").WithArgs("alice", "alice@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	u, err := repo.Create(context.Background(), User{Username: "alice", Email: "alice@example.com", Password: "hash"})
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)

	_, err = repo.Create(context.Background(), User{Username: "alice", Email: "alice@example.com", Password: "hash"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByUsernameNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("FROM users\\s+WHERE username = \\$1").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
