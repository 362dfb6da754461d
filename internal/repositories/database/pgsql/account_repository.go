package pgsql

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerbook/internal/models"
	"github.com/SscSPs/ledgerbook/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, code, name, account_type, parent_account_id, description, is_active, balance,
		created_at, created_by, last_updated_at, last_updated_by, version, is_deleted, deleted_at, deleted_by`

type PgxAccountRepository struct {
	db Querier
}

func newPgxAccountRepository(db Querier) portsrepo.AccountRepositoryFacade {
	return &PgxAccountRepository{db: db}
}

var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// WithTx returns a copy of the repository that runs its statements on tx.
func (r *PgxAccountRepository) WithTx(tx pgx.Tx) portsrepo.AccountRepositoryFacade {
	return &PgxAccountRepository{db: tx}
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.Code,
		&m.Name,
		&m.AccountType,
		&m.ParentAccountID,
		&m.Description,
		&m.IsActive,
		&m.Balance,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
		&m.IsDeleted,
		&m.DeletedAt,
		&m.DeletedBy,
	)
	return m, err
}

// SaveAccount inserts a new account and sets its generated id.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account *domain.Account) error {
	m := mapping.ToModelAccount(*account)
	query := `
		INSERT INTO accounts (code, name, account_type, parent_account_id, description, is_active, balance,
			created_at, created_by, last_updated_at, last_updated_by, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		RETURNING account_id;
	`
	err := r.db.QueryRow(ctx, query,
		m.Code,
		m.Name,
		m.AccountType,
		m.ParentAccountID,
		m.Description,
		m.IsActive,
		m.Balance,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	).Scan(&account.AccountID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account with code %s already exists", apperrors.ErrDuplicate, m.Code)
		}
		return fmt.Errorf("failed to save account %s: %w", m.Code, err)
	}
	account.Version = 1
	return nil
}

// FindAccountByID retrieves a live account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 AND is_deleted = FALSE;`
	m, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", apperrors.ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to find account %d: %w", accountID, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

// FindAccountByCode retrieves a live account by its business code.
func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE code = $1 AND is_deleted = FALSE;`
	m, err := scanAccount(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account with code %s", apperrors.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to find account by code %s: %w", code, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

// FindAccountsByIDs retrieves the live accounts among accountIDs.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[int64]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) AND is_deleted = FALSE;`
	return r.queryAccountMap(ctx, query, accountIDs)
}

// FindAccountByIDForUpdate locks a live account row.
func (r *PgxAccountRepository) FindAccountByIDForUpdate(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 AND is_deleted = FALSE FOR UPDATE;`
	m, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", apperrors.ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to lock account %d: %w", accountID, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

// FindAccountsByIDsForShare share-locks the live accounts among accountIDs in ascending id order.
func (r *PgxAccountRepository) FindAccountsByIDsForShare(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[int64]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) AND is_deleted = FALSE ORDER BY account_id FOR SHARE;`
	return r.queryAccountMap(ctx, query, accountIDs)
}

// FindAccountsByIDsForUpdate locks the live accounts among accountIDs in ascending id order.
func (r *PgxAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[int64]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) AND is_deleted = FALSE ORDER BY account_id FOR UPDATE;`
	return r.queryAccountMap(ctx, query, accountIDs)
}

func (r *PgxAccountRepository) queryAccountMap(ctx context.Context, query string, accountIDs []int64) (map[int64]domain.Account, error) {
	rows, err := r.db.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	defer rows.Close()

	accounts := make(map[int64]domain.Account, len(accountIDs))
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts[m.AccountID] = mapping.ToDomainAccount(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// ListAccounts retrieves a page of live accounts ordered by code.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE is_deleted = FALSE ORDER BY code LIMIT $1 OFFSET $2;`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, limit)
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, mapping.ToDomainAccount(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// CountSubAccounts counts the live children of an account.
func (r *PgxAccountRepository) CountSubAccounts(ctx context.Context, accountID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM accounts WHERE parent_account_id = $1 AND is_deleted = FALSE;`
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sub-accounts of %d: %w", accountID, err)
	}
	return count, nil
}

// CountJournalLines counts the live journal lines that reference an account.
func (r *PgxAccountRepository) CountJournalLines(ctx context.Context, accountID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM journal_entry_lines WHERE account_id = $1 AND is_deleted = FALSE;`
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count journal lines of account %d: %w", accountID, err)
	}
	return count, nil
}

// UpdateAccount updates name, description and active flag, bumping the version.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, description = $2, is_active = $3, last_updated_at = $4, last_updated_by = $5, version = version + 1
		WHERE account_id = $6 AND is_deleted = FALSE;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		account.Name,
		account.Description,
		account.IsActive,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
		account.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", account.AccountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", apperrors.ErrNotFound, account.AccountID)
	}
	return nil
}

// SoftDeleteAccount tombstones an account.
func (r *PgxAccountRepository) SoftDeleteAccount(ctx context.Context, accountID int64, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_deleted = TRUE, is_active = FALSE, deleted_at = $1, deleted_by = $2,
			last_updated_at = $1, last_updated_by = $2, version = version + 1
		WHERE account_id = $3 AND is_deleted = FALSE;
	`
	cmdTag, err := r.db.Exec(ctx, query, now, userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", apperrors.ErrNotFound, accountID)
	}
	return nil
}

// UpdateAccountBalances adds each change to its account's balance, in ascending id order.
func (r *PgxAccountRepository) UpdateAccountBalances(ctx context.Context, balanceChanges map[int64]decimal.Decimal, userID string, now time.Time) error {
	ids := make([]int64, 0, len(balanceChanges))
	for id := range balanceChanges {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	query := `
		UPDATE accounts
		SET balance = balance + $1, last_updated_at = $2, last_updated_by = $3, version = version + 1
		WHERE account_id = $4 AND is_deleted = FALSE;
	`
	for _, id := range ids {
		cmdTag, err := r.db.Exec(ctx, query, balanceChanges[id], now, userID, id)
		if err != nil {
			return fmt.Errorf("failed to update balance for account %d: %w", id, err)
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("%w: account %d disappeared while updating balance", apperrors.ErrNotFound, id)
		}
	}
	return nil
}
