package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one line of a journal entry as submitted by a client.
// Exactly one of DebitAmount and CreditAmount must be greater than zero.
type JournalLineRequest struct {
	AccountID    int64           `json:"accountID" binding:"required,gt=0"`
	DebitAmount  decimal.Decimal `json:"debitAmount" binding:"gte=0"`
	CreditAmount decimal.Decimal `json:"creditAmount" binding:"gte=0"`
	Description  string          `json:"description" binding:"max=500"`
}

// CreateJournalEntryRequest defines the data needed to create a draft journal entry.
type CreateJournalEntryRequest struct {
	TransactionDate time.Time            `json:"transactionDate" binding:"required"`
	Description     string               `json:"description" binding:"required,max=500"`
	Reference       *string              `json:"reference" binding:"omitempty,max=100"`
	Lines           []JournalLineRequest `json:"lines" binding:"required,dive"`
}

// UpdateJournalEntryRequest replaces the header and the full line set of a draft entry.
type UpdateJournalEntryRequest struct {
	TransactionDate time.Time            `json:"transactionDate" binding:"required"`
	Description     string               `json:"description" binding:"required,max=500"`
	Reference       *string              `json:"reference" binding:"omitempty,max=100"`
	Lines           []JournalLineRequest `json:"lines" binding:"required,dive"`
}

// ToDomainLines converts request lines into domain lines numbered from 1.
func ToDomainLines(lines []JournalLineRequest) ([]domain.JournalEntryLine, error) {
	result := make([]domain.JournalEntryLine, len(lines))
	for i, l := range lines {
		amount, err := domain.AmountFromColumns(l.DebitAmount, l.CreditAmount)
		if err != nil {
			return nil, fmt.Errorf("line %d (account %d): %w", i+1, l.AccountID, err)
		}
		result[i] = domain.JournalEntryLine{
			AccountID:   l.AccountID,
			LineNo:      i + 1,
			Amount:      amount,
			Description: l.Description,
		}
	}
	return result, nil
}

// JournalLineResponse defines the data returned for a journal line.
type JournalLineResponse struct {
	LineID       int64           `json:"lineID"`
	AccountID    int64           `json:"accountID"`
	LineNo       int             `json:"lineNo"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Description  string          `json:"description"`
}

// JournalEntryResponse defines the data returned for a journal entry.
type JournalEntryResponse struct {
	JournalEntryID  int64                 `json:"journalEntryID"`
	EntryNumber     string                `json:"entryNumber"`
	TransactionDate time.Time             `json:"transactionDate"`
	Description     string                `json:"description"`
	Reference       *string               `json:"reference,omitempty"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	IsPosted        bool                  `json:"isPosted"`
	PostedAt        *time.Time            `json:"postedAt,omitempty"`
	PostedBy        *string               `json:"postedBy,omitempty"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"createdAt"`
	CreatedBy       string                `json:"createdBy"`
	LastUpdatedAt   time.Time             `json:"lastUpdatedAt"`
	LastUpdatedBy   string                `json:"lastUpdatedBy"`
	Lines           []JournalLineResponse `json:"lines,omitempty"`
}

// ToJournalEntryResponse converts a domain.JournalEntry to its response DTO.
func ToJournalEntryResponse(e *domain.JournalEntry) JournalEntryResponse {
	resp := JournalEntryResponse{
		JournalEntryID:  e.JournalEntryID,
		EntryNumber:     e.EntryNumber,
		TransactionDate: e.TransactionDate,
		Description:     e.Description,
		Reference:       e.Reference,
		TotalAmount:     e.TotalAmount,
		IsPosted:        e.IsPosted,
		PostedAt:        e.PostedAt,
		PostedBy:        e.PostedBy,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		CreatedBy:       e.CreatedBy,
		LastUpdatedAt:   e.LastUpdatedAt,
		LastUpdatedBy:   e.LastUpdatedBy,
	}
	for _, l := range e.ActiveLines() {
		resp.Lines = append(resp.Lines, JournalLineResponse{
			LineID:       l.LineID,
			AccountID:    l.AccountID,
			LineNo:       l.LineNo,
			DebitAmount:  l.Amount.DebitAmount(),
			CreditAmount: l.Amount.CreditAmount(),
			Description:  l.Description,
		})
	}
	return resp
}

// ListJournalEntriesParams defines query parameters for listing journal entries.
type ListJournalEntriesParams struct {
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// ListJournalEntriesResponse is a page of journal entries.
type ListJournalEntriesResponse struct {
	Entries   []JournalEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}
