package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"game-economy-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountColumnNames() []string {
	return []string{"account_id", "balance", "created_at", "updated_at"}
}

func accountRow(id int64, balance string, at time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames()).AddRow(id, balance, at, at)
}

func TestAccountRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE account_id = \$1$`).
		WithArgs(int64(7)).
		WillReturnRows(accountRow(7, "123.45", now))

	a, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, domain.AccountID(7), a.ID)
	assert.Equal(t, "123.45", domain.FormatMoney(a.Balance))
	assert.Equal(t, now, a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	a, err := repo.Get(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Get_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts").
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	a, err := repo.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "get account")
}

func TestAccountRepo_GetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_id = .+ FOR UPDATE").
		WithArgs(int64(3)).
		WillReturnRows(accountRow(3, "0.50", now))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	a, err := repo.GetForUpdate(context.Background(), tx, 3)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, decimal.RequireFromString("0.5").Equal(a.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create(t *testing.T) {
	tests := []struct {
		name    string
		result  int64
		created bool
	}{
		{"inserted", 1, true},
		{"already exists", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewAccountRepo(mock)
			now := time.Now().UTC().Truncate(time.Microsecond)
			a := &domain.Account{ID: 5, Balance: decimal.NewFromInt(100), CreatedAt: now, UpdatedAt: now}

			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO accounts .+ ON CONFLICT").
				WithArgs(int64(5), "100.00", now, now).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.result))

			tx, err := mock.Begin(context.Background())
			require.NoError(t, err)

			created, err := repo.Create(context.Background(), tx, a)
			require.NoError(t, err)
			assert.Equal(t, tt.created, created)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs("70.00", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, 1, decimal.RequireFromString("70"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs("10.00", int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, 404, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found: 404")
}
