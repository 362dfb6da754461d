package services

import (
	"context"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/SscSPs/ledgerbook/internal/dto"
)

// JournalReaderSvc defines read operations for journal entries
type JournalReaderSvc interface {
	// GetJournalEntry retrieves a live entry with its live lines.
	GetJournalEntry(ctx context.Context, entryID int64) (*domain.JournalEntry, error)

	// ListJournalEntries retrieves a page of live entries, newest first.
	ListJournalEntries(ctx context.Context, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error)
}

// JournalWriterSvc defines the journal entry lifecycle. Every method takes the
// acting user explicitly; an empty userID is rejected before the store is touched.
type JournalWriterSvc interface {
	// CreateJournalEntry validates and persists a draft entry.
	CreateJournalEntry(ctx context.Context, req dto.CreateJournalEntryRequest, userID string) (*domain.JournalEntry, error)

	// UpdateJournalEntry replaces the header and every line of a draft entry.
	UpdateJournalEntry(ctx context.Context, entryID int64, req dto.UpdateJournalEntryRequest, userID string) (*domain.JournalEntry, error)

	// PostJournalEntry posts a draft entry and applies it to account balances.
	PostJournalEntry(ctx context.Context, entryID int64, userID string) error

	// DeleteJournalEntry soft-deletes a draft entry and all of its lines.
	DeleteJournalEntry(ctx context.Context, entryID int64, userID string) error

	// DeleteJournalLine soft-deletes a single line of a draft entry.
	DeleteJournalLine(ctx context.Context, lineID int64, userID string) error
}

// JournalSvcFacade combines all journal service interfaces
type JournalSvcFacade interface {
	JournalReaderSvc
	JournalWriterSvc
}
