package postgres

import (
	"context"
	"testing"
	"time"

	"game-economy-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	rec := &domain.IdempotencyRecord{
		Key:          "apply:7:ORDER-001",
		AccountID:    7,
		ResponseJSON: []byte(`{"new_balance":"70"}`),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(rec.Key, int64(7), rec.ResponseJSON, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM idempotency_keys WHERE key").
		WithArgs("apply:7:ORDER-001").
		WillReturnRows(pgxmock.NewRows([]string{"key", "account_id", "response", "created_at"}).
			AddRow("apply:7:ORDER-001", int64(7), []byte(`{"new_balance":"70"}`), now))

	result, err := repo.Get(context.Background(), "apply:7:ORDER-001")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.AccountID(7), result.AccountID)
	assert.Equal(t, []byte(`{"new_balance":"70"}`), result.ResponseJSON)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM idempotency_keys").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"key", "account_id", "response", "created_at"}))

	result, err := repo.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
}
