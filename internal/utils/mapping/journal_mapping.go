package mapping

import (
	"fmt"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/SscSPs/ledgerbook/internal/models"
)

// ToModelJournalEntry converts a domain JournalEntry header to a model JournalEntry.
// Lines are mapped separately.
func ToModelJournalEntry(d domain.JournalEntry) models.JournalEntry {
	return models.JournalEntry{
		JournalEntryID:  d.JournalEntryID,
		EntryNumber:     d.EntryNumber,
		TransactionDate: d.TransactionDate,
		Description:     d.Description,
		Reference:       d.Reference,
		TotalAmount:     d.TotalAmount,
		IsPosted:        d.IsPosted,
		PostedAt:        d.PostedAt,
		PostedBy:        d.PostedBy,
		AuditFields:     ToModelAuditFields(d.AuditFields),
		SoftDelete:      ToModelSoftDelete(d.SoftDelete),
	}
}

// ToDomainJournalEntry converts a model JournalEntry to a domain JournalEntry without lines.
func ToDomainJournalEntry(m models.JournalEntry) domain.JournalEntry {
	return domain.JournalEntry{
		JournalEntryID:  m.JournalEntryID,
		EntryNumber:     m.EntryNumber,
		TransactionDate: m.TransactionDate,
		Description:     m.Description,
		Reference:       m.Reference,
		TotalAmount:     m.TotalAmount,
		IsPosted:        m.IsPosted,
		PostedAt:        m.PostedAt,
		PostedBy:        m.PostedBy,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
		SoftDelete:      ToDomainSoftDelete(m.SoftDelete),
	}
}

// ToModelJournalEntryLine splits the line amount into its debit and credit columns.
func ToModelJournalEntryLine(d domain.JournalEntryLine) models.JournalEntryLine {
	return models.JournalEntryLine{
		LineID:         d.LineID,
		JournalEntryID: d.JournalEntryID,
		AccountID:      d.AccountID,
		LineNo:         d.LineNo,
		DebitAmount:    d.Amount.DebitAmount(),
		CreditAmount:   d.Amount.CreditAmount(),
		Description:    d.Description,
		AuditFields:    ToModelAuditFields(d.AuditFields),
		SoftDelete:     ToModelSoftDelete(d.SoftDelete),
	}
}

// ToDomainJournalEntryLine converts a stored line, rejecting rows whose
// debit/credit pair is not exactly one positive side.
func ToDomainJournalEntryLine(m models.JournalEntryLine) (domain.JournalEntryLine, error) {
	amount, err := domain.AmountFromColumns(m.DebitAmount, m.CreditAmount)
	if err != nil {
		return domain.JournalEntryLine{}, fmt.Errorf("stored line %d: %w", m.LineID, err)
	}
	return domain.JournalEntryLine{
		LineID:         m.LineID,
		JournalEntryID: m.JournalEntryID,
		AccountID:      m.AccountID,
		LineNo:         m.LineNo,
		Amount:         amount,
		Description:    m.Description,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
		SoftDelete:     ToDomainSoftDelete(m.SoftDelete),
	}, nil
}
