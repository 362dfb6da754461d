package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is a dated set of balanced debit and credit lines.
// An entry starts as a draft, and posting it is a one-way transition.
type JournalEntry struct {
	JournalEntryID  int64              `json:"journalEntryID"`
	EntryNumber     string             `json:"entryNumber"`
	TransactionDate time.Time          `json:"transactionDate"`
	Description     string             `json:"description"`
	Reference       *string            `json:"reference,omitempty"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	IsPosted        bool               `json:"isPosted"`
	PostedAt        *time.Time         `json:"postedAt,omitempty"`
	PostedBy        *string            `json:"postedBy,omitempty"`
	Lines           []JournalEntryLine `json:"lines"`
	AuditFields
	SoftDelete
}

// JournalEntryLine is a single debit or credit against one account.
type JournalEntryLine struct {
	LineID         int64  `json:"lineID"`
	JournalEntryID int64  `json:"journalEntryID"`
	AccountID      int64  `json:"accountID"`
	LineNo         int    `json:"lineNo"`
	Amount         Amount `json:"amount"`
	Description    string `json:"description"`
	AuditFields
	SoftDelete
}

// ActiveLines returns the lines that are not soft-deleted, in order.
func (e *JournalEntry) ActiveLines() []JournalEntryLine {
	active := make([]JournalEntryLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		if !l.IsDeleted {
			active = append(active, l)
		}
	}
	return active
}

// AccountIDs returns the distinct account ids referenced by non-deleted lines, in first-seen order.
func (e *JournalEntry) AccountIDs() []int64 {
	return LineAccountIDs(e.Lines)
}

// LineAccountIDs returns the distinct account ids referenced by non-deleted lines, in first-seen order.
func LineAccountIDs(lines []JournalEntryLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.IsDeleted {
			continue
		}
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// MarkPosted flips the entry to posted and stamps the posting actor.
func (e *JournalEntry) MarkPosted(actor string, now time.Time) {
	e.IsPosted = true
	e.PostedAt = &now
	e.PostedBy = &actor
	e.Touch(actor, now)
}
