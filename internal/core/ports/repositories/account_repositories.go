package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for account data.
// Soft-deleted accounts are invisible to every reader method.
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)

	// FindAccountByCode retrieves an account by its business code.
	FindAccountByCode(ctx context.Context, code string) (*domain.Account, error)

	// FindAccountsByIDs retrieves the live accounts among accountIDs, keyed by id.
	// Missing ids are simply absent from the map.
	FindAccountsByIDs(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error)

	// ListAccounts retrieves a page of accounts ordered by code.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)

	// CountSubAccounts counts the live children of an account.
	CountSubAccounts(ctx context.Context, accountID int64) (int, error)

	// CountJournalLines counts the live journal lines that reference an account.
	CountJournalLines(ctx context.Context, accountID int64) (int, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account and sets its generated id.
	SaveAccount(ctx context.Context, account *domain.Account) error

	// UpdateAccount updates the mutable details of an account: name, description and active flag.
	UpdateAccount(ctx context.Context, account domain.Account) error

	// SoftDeleteAccount tombstones an account.
	SoftDeleteAccount(ctx context.Context, accountID int64, userID string, now time.Time) error
}

// AccountTransactionSupport defines the locking reads used inside ledger transactions.
type AccountTransactionSupport interface {
	// FindAccountByIDForUpdate selects a live account and locks it for update.
	FindAccountByIDForUpdate(ctx context.Context, accountID int64) (*domain.Account, error)

	// FindAccountsByIDsForShare selects live accounts with a share lock, in ascending id order.
	// It holds off a concurrent delete until the caller's lines are committed.
	FindAccountsByIDsForShare(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error)

	// FindAccountsByIDsForUpdate selects live accounts and locks them for update.
	// Rows are locked in ascending id order.
	FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error)

	// UpdateAccountBalances adds each change to the balance of its account.
	UpdateAccountBalances(ctx context.Context, balanceChanges map[int64]decimal.Decimal, userID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	AccountTransactionSupport

	// WithTx returns a repository bound to tx.
	WithTx(tx pgx.Tx) AccountRepositoryFacade
}
