package services

import (
	"context"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/SscSPs/ledgerbook/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccountByID retrieves a live account by its unique identifier.
	GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)

	// GetAccountsByIDs retrieves the live accounts among accountIDs.
	GetAccountsByIDs(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error)

	// ListAccounts retrieves a page of accounts.
	ListAccounts(ctx context.Context, params dto.ListAccountsParams) ([]domain.Account, error)

	// AccountDepth returns the number of ancestors above an account; root accounts have depth 0.
	AccountDepth(ctx context.Context, accountID int64) (int, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, userID string) (*domain.Account, error)

	// UpdateAccount updates name, description and active flag.
	UpdateAccount(ctx context.Context, accountID int64, req dto.UpdateAccountRequest, userID string) (*domain.Account, error)

	// DeleteAccount soft-deletes an account that has no live children, no live lines and a zero balance.
	DeleteAccount(ctx context.Context, accountID int64, userID string) error
}

// AccountSvcFacade combines all account service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
