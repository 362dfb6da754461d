package pgsql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/SscSPs/ledgerbook/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountColumnNames = []string{
	"account_id", "code", "name", "account_type", "parent_account_id", "description", "is_active", "balance",
	"created_at", "created_by", "last_updated_at", "last_updated_by", "version", "is_deleted", "deleted_at", "deleted_by",
}

func accountRow(rows *pgxmock.Rows, id int64, code string, accountType models.AccountType, balance decimal.Decimal, now time.Time) *pgxmock.Rows {
	return rows.AddRow(id, code, "Account "+code, accountType, nil, "", true, balance,
		now, "user-1", now, "user-1", int64(1), false, nil, nil)
}

func TestPgxAccountRepository_SaveAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	now := time.Now()
	acc := &domain.Account{
		Code:        "1000",
		Name:        "Cash",
		AccountType: domain.Asset,
		IsActive:    true,
		Balance:     decimal.Zero,
		AuditFields: domain.AuditFields{CreatedAt: now, CreatedBy: "user-1", LastUpdatedAt: now, LastUpdatedBy: "user-1"},
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
			WithArgs("1000", "Cash", models.Asset, (*int64)(nil), "", true, pgxmock.AnyArg(), now, "user-1", now, "user-1").
			WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow(int64(7)))

		err := repo.SaveAccount(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, int64(7), acc.AccountID)
		assert.Equal(t, int64(1), acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate code", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.SaveAccount(ctx, acc)
		assert.ErrorIs(t, err, apperrors.ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgxAccountRepository_FindAccountByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	now := time.Now()
	query := regexp.QuoteMeta("FROM accounts WHERE account_id = $1 AND is_deleted = FALSE")

	t.Run("success", func(t *testing.T) {
		rows := accountRow(pgxmock.NewRows(accountColumnNames), 3, "4000", models.Revenue, decimal.NewFromInt(250), now)
		mock.ExpectQuery(query).WithArgs(int64(3)).WillReturnRows(rows)

		acc, err := repo.FindAccountByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), acc.AccountID)
		assert.Equal(t, domain.Revenue, acc.AccountType)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(250)))
		assert.Nil(t, acc.ParentAccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.FindAccountByID(ctx, 99)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgxAccountRepository_FindAccountsByIDs(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	now := time.Now()

	rows := pgxmock.NewRows(accountColumnNames)
	accountRow(rows, 1, "1000", models.Asset, decimal.Zero, now)
	accountRow(rows, 2, "2000", models.Liability, decimal.Zero, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE account_id = ANY($1) AND is_deleted = FALSE;")).
		WithArgs([]int64{1, 2, 3}).
		WillReturnRows(rows)

	accounts, err := repo.FindAccountsByIDs(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Contains(t, accounts, int64(1))
	assert.NotContains(t, accounts, int64(3))
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.FindAccountsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPgxAccountRepository_FindAccountsByIDsForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	rows := accountRow(pgxmock.NewRows(accountColumnNames), 5, "5000", models.Expense, decimal.Zero, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY account_id FOR UPDATE")).
		WithArgs([]int64{5}).
		WillReturnRows(rows)

	accounts, err := repo.FindAccountsByIDsForUpdate(ctx, []int64{5})
	require.NoError(t, err)
	assert.Equal(t, domain.Expense, accounts[5].AccountType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxAccountRepository_FindAccountByIDForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	query := regexp.QuoteMeta("WHERE account_id = $1 AND is_deleted = FALSE FOR UPDATE;")

	t.Run("locks live row", func(t *testing.T) {
		rows := accountRow(pgxmock.NewRows(accountColumnNames), 4, "4000", models.Revenue, decimal.Zero, time.Now())
		mock.ExpectQuery(query).WithArgs(int64(4)).WillReturnRows(rows)

		acc, err := repo.FindAccountByIDForUpdate(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4), acc.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.FindAccountByIDForUpdate(ctx, 99)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgxAccountRepository_FindAccountsByIDsForShare(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	rows := pgxmock.NewRows(accountColumnNames)
	accountRow(rows, 1, "1000", models.Asset, decimal.Zero, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY account_id FOR SHARE;")).
		WithArgs([]int64{1, 2}).
		WillReturnRows(rows)

	accounts, err := repo.FindAccountsByIDsForShare(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Contains(t, accounts, int64(1))
	assert.NotContains(t, accounts, int64(2))
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.FindAccountsByIDsForShare(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPgxAccountRepository_UpdateAccountBalances(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	now := time.Now()
	changes := map[int64]decimal.Decimal{
		9: decimal.NewFromInt(-100),
		4: decimal.NewFromInt(100),
	}
	query := regexp.QuoteMeta("SET balance = balance + $1")

	t.Run("updates in ascending id order", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(changes[4], now, "user-1", int64(4)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(query).WithArgs(changes[9], now, "user-1", int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateAccountBalances(ctx, changes, "user-1", now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(changes[4], now, "user-1", int64(4)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateAccountBalances(ctx, map[int64]decimal.Decimal{4: changes[4]}, "user-1", now)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgxAccountRepository_SoftDeleteAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("SET is_deleted = TRUE, is_active = FALSE")).
		WithArgs(now, "user-1", int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SoftDeleteAccount(ctx, 3, "user-1", now))

	mock.ExpectExec(regexp.QuoteMeta("SET is_deleted = TRUE, is_active = FALSE")).
		WithArgs(now, "user-1", int64(3)).
		WillReturnError(errors.New("connection reset"))
	err = repo.SoftDeleteAccount(ctx, 3, "user-1", now)
	assert.ErrorContains(t, err, "failed to delete account 3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxAccountRepository_Counts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PgxAccountRepository{db: mock}

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE parent_account_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM journal_entry_lines WHERE account_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	subs, err := repo.CountSubAccounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, subs)

	lines, err := repo.CountJournalLines(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}
