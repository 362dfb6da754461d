package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerbook/internal/models"
	"github.com/SscSPs/ledgerbook/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

const (
	entryColumns = `journal_entry_id, entry_number, transaction_date, description, reference, total_amount,
		is_posted, posted_at, posted_by, created_at, created_by, last_updated_at, last_updated_by, version,
		is_deleted, deleted_at, deleted_by`

	lineColumns = `line_id, journal_entry_id, account_id, line_no, debit_amount, credit_amount, description,
		created_at, created_by, last_updated_at, last_updated_by, version, is_deleted, deleted_at, deleted_by`

	entryNumberFormat = "JE-%s-%06d"
)

// PgxJournalRepository stores journal entries and their lines.
type PgxJournalRepository struct {
	db Querier
}

func newPgxJournalRepository(db Querier) portsrepo.JournalRepositoryFacade {
	return &PgxJournalRepository{db: db}
}

var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

// WithTx returns a copy of the repository that runs its statements on tx.
func (r *PgxJournalRepository) WithTx(tx pgx.Tx) portsrepo.JournalRepositoryFacade {
	return &PgxJournalRepository{db: tx}
}

func scanEntry(row pgx.Row) (models.JournalEntry, error) {
	var m models.JournalEntry
	err := row.Scan(
		&m.JournalEntryID,
		&m.EntryNumber,
		&m.TransactionDate,
		&m.Description,
		&m.Reference,
		&m.TotalAmount,
		&m.IsPosted,
		&m.PostedAt,
		&m.PostedBy,
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

func scanLine(row pgx.Row) (models.JournalEntryLine, error) {
	var m models.JournalEntryLine
	err := row.Scan(
		&m.LineID,
		&m.JournalEntryID,
		&m.AccountID,
		&m.LineNo,
		&m.DebitAmount,
		&m.CreditAmount,
		&m.Description,
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

// FindEntryByID retrieves a live entry with its live lines.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE journal_entry_id = $1 AND is_deleted = FALSE;`
	return r.findEntry(ctx, query, entryID)
}

// FindEntryByIDForUpdate retrieves a live entry and locks its row until the transaction ends.
func (r *PgxJournalRepository) FindEntryByIDForUpdate(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE journal_entry_id = $1 AND is_deleted = FALSE FOR UPDATE;`
	return r.findEntry(ctx, query, entryID)
}

func (r *PgxJournalRepository) findEntry(ctx context.Context, query string, entryID int64) (*domain.JournalEntry, error) {
	m, err := scanEntry(r.db.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: journal entry %d", apperrors.ErrNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to find journal entry %d: %w", entryID, err)
	}

	entry := mapping.ToDomainJournalEntry(m)
	lines, err := r.findLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines
	return &entry, nil
}

func (r *PgxJournalRepository) findLinesByEntryID(ctx context.Context, entryID int64) ([]domain.JournalEntryLine, error) {
	query := `SELECT ` + lineColumns + ` FROM journal_entry_lines
		WHERE journal_entry_id = $1 AND is_deleted = FALSE
		ORDER BY line_no, line_id;`
	rows, err := r.db.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of journal entry %d: %w", entryID, err)
	}
	defer rows.Close()

	var lines []domain.JournalEntryLine
	for rows.Next() {
		m, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal line row: %w", err)
		}
		line, err := mapping.ToDomainJournalEntryLine(m)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal line rows: %w", err)
	}
	return lines, nil
}

// FindLineByID retrieves a single live line.
func (r *PgxJournalRepository) FindLineByID(ctx context.Context, lineID int64) (*domain.JournalEntryLine, error) {
	query := `SELECT ` + lineColumns + ` FROM journal_entry_lines WHERE line_id = $1 AND is_deleted = FALSE;`
	m, err := scanLine(r.db.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: journal line %d", apperrors.ErrNotFound, lineID)
		}
		return nil, fmt.Errorf("failed to find journal line %d: %w", lineID, err)
	}
	line, err := mapping.ToDomainJournalEntryLine(m)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ListEntries retrieves live entry headers newest first, starting after the cursor when given.
func (r *PgxJournalRepository) ListEntries(ctx context.Context, limit int, after *portsrepo.EntryCursor) ([]domain.JournalEntry, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		query := `SELECT ` + entryColumns + ` FROM journal_entries
			WHERE is_deleted = FALSE
			ORDER BY transaction_date DESC, journal_entry_id DESC
			LIMIT $1;`
		rows, err = r.db.Query(ctx, query, limit)
	} else {
		query := `SELECT ` + entryColumns + ` FROM journal_entries
			WHERE is_deleted = FALSE AND (transaction_date, journal_entry_id) < ($1, $2)
			ORDER BY transaction_date DESC, journal_entry_id DESC
			LIMIT $3;`
		rows, err = r.db.Query(ctx, query, after.TransactionDate, after.JournalEntryID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, limit)
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry row: %w", err)
		}
		entries = append(entries, mapping.ToDomainJournalEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entry rows: %w", err)
	}
	return entries, nil
}

// NextEntryNumber allocates the next entry number from the database sequence.
func (r *PgxJournalRepository) NextEntryNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('journal_entry_number_seq');`).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate journal entry number: %w", err)
	}
	return fmt.Sprintf(entryNumberFormat, date.Format("20060102"), seq), nil
}

// SaveEntry inserts the entry header and its lines.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	m := mapping.ToModelJournalEntry(*entry)
	query := `
		INSERT INTO journal_entries (entry_number, transaction_date, description, reference, total_amount, is_posted,
			created_at, created_by, last_updated_at, last_updated_by, version)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8, $9, 1)
		RETURNING journal_entry_id;
	`
	err := r.db.QueryRow(ctx, query,
		m.EntryNumber,
		m.TransactionDate,
		m.Description,
		m.Reference,
		m.TotalAmount,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	).Scan(&entry.JournalEntryID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: journal entry number %s", apperrors.ErrDuplicate, m.EntryNumber)
		}
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	entry.Version = 1

	return r.InsertLines(ctx, entry.JournalEntryID, entry.Lines)
}

// InsertLines inserts lines for an existing entry and sets their generated ids.
func (r *PgxJournalRepository) InsertLines(ctx context.Context, entryID int64, lines []domain.JournalEntryLine) error {
	query := `
		INSERT INTO journal_entry_lines (journal_entry_id, account_id, line_no, debit_amount, credit_amount, description,
			created_at, created_by, last_updated_at, last_updated_by, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING line_id;
	`
	for i := range lines {
		lines[i].JournalEntryID = entryID
		m := mapping.ToModelJournalEntryLine(lines[i])
		err := r.db.QueryRow(ctx, query,
			entryID,
			m.AccountID,
			m.LineNo,
			m.DebitAmount,
			m.CreditAmount,
			m.Description,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		).Scan(&lines[i].LineID)
		if err != nil {
			return fmt.Errorf("failed to insert line %d of journal entry %d: %w", m.LineNo, entryID, err)
		}
		lines[i].Version = 1
	}
	return nil
}

// UpdateEntry writes the entry header, guarded by its version.
func (r *PgxJournalRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry) error {
	m := mapping.ToModelJournalEntry(entry)
	query := `
		UPDATE journal_entries
		SET transaction_date = $1, description = $2, reference = $3, total_amount = $4,
			is_posted = $5, posted_at = $6, posted_by = $7, last_updated_at = $8, last_updated_by = $9,
			version = version + 1
		WHERE journal_entry_id = $10 AND version = $11 AND is_deleted = FALSE;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		m.TransactionDate,
		m.Description,
		m.Reference,
		m.TotalAmount,
		m.IsPosted,
		m.PostedAt,
		m.PostedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.JournalEntryID,
		m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update journal entry %d: %w", m.JournalEntryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal entry %d at version %d", domain.ErrConcurrentModification, m.JournalEntryID, m.Version)
	}
	return nil
}

// SoftDeleteEntry tombstones the entry header, guarded by its version.
func (r *PgxJournalRepository) SoftDeleteEntry(ctx context.Context, entryID int64, version int64, userID string, now time.Time) error {
	query := `
		UPDATE journal_entries
		SET is_deleted = TRUE, deleted_at = $1, deleted_by = $2, last_updated_at = $1, last_updated_by = $2,
			version = version + 1
		WHERE journal_entry_id = $3 AND version = $4 AND is_deleted = FALSE;
	`
	cmdTag, err := r.db.Exec(ctx, query, now, userID, entryID, version)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry %d: %w", entryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal entry %d at version %d", domain.ErrConcurrentModification, entryID, version)
	}
	return nil
}

// SoftDeleteLines tombstones every live line of an entry.
func (r *PgxJournalRepository) SoftDeleteLines(ctx context.Context, entryID int64, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE journal_entry_lines
		SET is_deleted = TRUE, deleted_at = $1, deleted_by = $2, last_updated_at = $1, last_updated_by = $2,
			version = version + 1
		WHERE journal_entry_id = $3 AND is_deleted = FALSE;
	`
	cmdTag, err := r.db.Exec(ctx, query, now, userID, entryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete lines of journal entry %d: %w", entryID, err)
	}
	return cmdTag.RowsAffected(), nil
}

// SoftDeleteLine tombstones one live line.
func (r *PgxJournalRepository) SoftDeleteLine(ctx context.Context, lineID int64, userID string, now time.Time) error {
	query := `
		UPDATE journal_entry_lines
		SET is_deleted = TRUE, deleted_at = $1, deleted_by = $2, last_updated_at = $1, last_updated_by = $2,
			version = version + 1
		WHERE line_id = $3 AND is_deleted = FALSE;
	`
	cmdTag, err := r.db.Exec(ctx, query, now, userID, lineID)
	if err != nil {
		return fmt.Errorf("failed to delete journal line %d: %w", lineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal line %d", apperrors.ErrNotFound, lineID)
	}
	return nil
}
