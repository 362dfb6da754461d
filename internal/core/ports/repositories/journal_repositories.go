package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// JournalReader defines read operations for journal entries.
// Soft-deleted entries and lines are never returned.
type JournalReader interface {
	// FindEntryByID retrieves an entry with its live lines in line order.
	FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error)

	// FindEntryByIDForUpdate is FindEntryByID with the entry row locked until the transaction ends.
	FindEntryByIDForUpdate(ctx context.Context, entryID int64) (*domain.JournalEntry, error)

	// FindLineByID retrieves a single live line.
	FindLineByID(ctx context.Context, lineID int64) (*domain.JournalEntryLine, error)

	// ListEntries retrieves up to limit entries without lines, newest first.
	// When after is non-nil, only entries sorting after that keyset position are returned.
	ListEntries(ctx context.Context, limit int, after *EntryCursor) ([]domain.JournalEntry, error)
}

// EntryCursor is a keyset position in the (transaction_date DESC, id DESC) entry order.
type EntryCursor struct {
	TransactionDate time.Time
	JournalEntryID  int64
}

// JournalWriter defines write operations for journal entries.
type JournalWriter interface {
	// NextEntryNumber allocates a unique entry number for an entry dated date.
	NextEntryNumber(ctx context.Context, date time.Time) (string, error)

	// SaveEntry inserts the entry header and its lines, setting generated ids.
	SaveEntry(ctx context.Context, entry *domain.JournalEntry) error

	// InsertLines inserts lines for an existing entry, setting generated ids.
	InsertLines(ctx context.Context, entryID int64, lines []domain.JournalEntryLine) error

	// UpdateEntry writes the header of entry if its stored version still equals
	// entry.Version, then increments the stored version. A stale version fails
	// with domain.ErrConcurrentModification.
	UpdateEntry(ctx context.Context, entry domain.JournalEntry) error

	// SoftDeleteEntry tombstones the entry header, guarded by version like UpdateEntry.
	SoftDeleteEntry(ctx context.Context, entryID int64, version int64, userID string, now time.Time) error

	// SoftDeleteLines tombstones every live line of an entry and returns how many were deleted.
	SoftDeleteLines(ctx context.Context, entryID int64, userID string, now time.Time) (int64, error)

	// SoftDeleteLine tombstones one live line.
	SoftDeleteLine(ctx context.Context, lineID int64, userID string, now time.Time) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter

	// WithTx returns a repository bound to tx.
	WithTx(tx pgx.Tx) JournalRepositoryFacade
}
