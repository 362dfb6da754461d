package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is a row of the journal_entries table.
type JournalEntry struct {
	JournalEntryID  int64           `db:"journal_entry_id"`
	EntryNumber     string          `db:"entry_number"`
	TransactionDate time.Time       `db:"transaction_date"`
	Description     string          `db:"description"`
	Reference       *string         `db:"reference"` // Nullable
	TotalAmount     decimal.Decimal `db:"total_amount"`
	IsPosted        bool            `db:"is_posted"`
	PostedAt        *time.Time      `db:"posted_at"`
	PostedBy        *string         `db:"posted_by"`
	AuditFields
	SoftDelete
}

// JournalEntryLine is a row of the journal_entry_lines table.
// Exactly one of DebitAmount and CreditAmount is positive; a CHECK constraint enforces it.
type JournalEntryLine struct {
	LineID         int64           `db:"line_id"`
	JournalEntryID int64           `db:"journal_entry_id"`
	AccountID      int64           `db:"account_id"`
	LineNo         int             `db:"line_no"`
	DebitAmount    decimal.Decimal `db:"debit_amount"`
	CreditAmount   decimal.Decimal `db:"credit_amount"`
	Description    string          `db:"description"`
	AuditFields
	SoftDelete
}
