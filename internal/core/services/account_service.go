package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/dto"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// maxAccountDepth bounds the parent walk so a corrupted hierarchy cannot loop forever.
const maxAccountDepth = 64

type accountService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	accountRepo portsrepo.AccountRepositoryFacade
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountClock overrides the clock used for audit stamps.
func WithAccountClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		s.Now = now
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repos portsrepo.RepositoryProvider, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		BaseService: newBaseService(),
		txManager:   repos.TxManager,
		accountRepo: repos.AccountRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, userID string) (*domain.Account, error) {
	if err := s.RequireActor(userID); err != nil {
		return nil, err
	}
	if !req.AccountType.IsValid() {
		return nil, fmt.Errorf("%w: invalid account type %q", apperrors.ErrValidation, req.AccountType)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: account code is required", apperrors.ErrValidation)
	}

	existing, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to check account code", slog.String("code", code))
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: account code %s already exists", apperrors.ErrDuplicate, code)
	}

	if req.ParentAccountID != nil {
		parent, err := s.accountRepo.FindAccountByID(ctx, *req.ParentAccountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: parent account %d not found", apperrors.ErrValidation, *req.ParentAccountID)
			}
			s.LogError(ctx, err, "Failed to find parent account",
				slog.Int64("parent_id", *req.ParentAccountID))
			return nil, err
		}
		if !parent.IsActive {
			return nil, fmt.Errorf("%w: parent account %d is inactive", apperrors.ErrValidation, parent.AccountID)
		}
	}

	now := s.Now()
	account := &domain.Account{
		Code:            code,
		Name:            req.Name,
		AccountType:     req.AccountType,
		ParentAccountID: req.ParentAccountID,
		Description:     req.Description,
		IsActive:        true,
		Balance:         decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("code", code))
		return nil, err
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.Int64("account_id", account.AccountID),
		slog.String("code", account.Code))
	return account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "Account not found", slog.Int64("account_id", accountID))
			return nil, err
		}
		s.LogError(ctx, err, "Failed to find account", slog.Int64("account_id", accountID))
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetAccountsByIDs(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		s.LogError(ctx, err, "Failed to find accounts by IDs",
			slog.String("account_ids", fmt.Sprintf("%v", accountIDs)))
		return nil, err
	}
	return accounts, nil
}

func (s *accountService) ListAccounts(ctx context.Context, params dto.ListAccountsParams) ([]domain.Account, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	accounts, err := s.accountRepo.ListAccounts(ctx, limit, params.Offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts",
			slog.Int("limit", limit),
			slog.Int("offset", params.Offset))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *accountService) AccountDepth(ctx context.Context, accountID int64) (int, error) {
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return 0, err
	}

	seen := map[int64]struct{}{account.AccountID: {}}
	depth := 0
	for account.ParentAccountID != nil {
		parentID := *account.ParentAccountID
		if _, ok := seen[parentID]; ok || depth >= maxAccountDepth {
			return 0, fmt.Errorf("%w: account hierarchy cycle at account %d", apperrors.ErrInternal, parentID)
		}
		seen[parentID] = struct{}{}

		account, err = s.accountRepo.FindAccountByID(ctx, parentID)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve parent account %d: %w", parentID, err)
		}
		depth++
	}
	return depth, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, accountID int64, req dto.UpdateAccountRequest, userID string) (*domain.Account, error) {
	if err := s.RequireActor(userID); err != nil {
		return nil, err
	}
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Name != nil {
		account.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		account.Description = *req.Description
		updated = true
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
		updated = true
	}
	if !updated {
		s.LogDebug(ctx, "No fields provided for account update", slog.Int64("account_id", accountID))
		return account, nil
	}

	account.Touch(userID, s.Now())
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to update account", slog.Int64("account_id", accountID))
		return nil, err
	}

	s.LogInfo(ctx, "Account updated successfully", slog.Int64("account_id", accountID))
	return account, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, accountID int64, userID string) error {
	if err := s.RequireActor(userID); err != nil {
		return err
	}

	// The row lock serialises against postings and line writes that share-lock the account.
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.accountRepo.WithTx(tx)
		account, err := repo.FindAccountByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		children, err := repo.CountSubAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: account %d has %d sub-accounts", domain.ErrAccountInUse, accountID, children)
		}
		lines, err := repo.CountJournalLines(ctx, accountID)
		if err != nil {
			return err
		}
		if lines > 0 {
			return fmt.Errorf("%w: account %d is referenced by %d journal lines", domain.ErrAccountInUse, accountID, lines)
		}
		if !account.Balance.IsZero() {
			return fmt.Errorf("%w: account %d has a non-zero balance", domain.ErrAccountInUse, accountID)
		}
		return repo.SoftDeleteAccount(ctx, accountID, userID, s.Now())
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, domain.ErrAccountInUse) {
			s.LogError(ctx, err, "Failed to delete account", slog.Int64("account_id", accountID))
		}
		return err
	}

	s.LogInfo(ctx, "Account deleted successfully", slog.Int64("account_id", accountID))
	return nil
}
