package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/dto"
	"github.com/SscSPs/ledgerbook/internal/utils/accounting"
	"github.com/SscSPs/ledgerbook/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type journalService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	journalRepo portsrepo.JournalRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
	outboxRepo  portsrepo.OutboxRepository
}

// JournalServiceOption is a functional option for configuring the journal service
type JournalServiceOption func(*journalService)

// WithJournalClock overrides the clock used for audit stamps.
func WithJournalClock(now func() time.Time) JournalServiceOption {
	return func(s *journalService) {
		s.Now = now
	}
}

// NewJournalService creates a new journal service backed by the given repositories.
func NewJournalService(repos portsrepo.RepositoryProvider, options ...JournalServiceOption) portssvc.JournalSvcFacade {
	svc := &journalService{
		BaseService: newBaseService(),
		txManager:   repos.TxManager,
		journalRepo: repos.JournalRepo,
		accountRepo: repos.AccountRepo,
		outboxRepo:  repos.OutboxRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// journalEventPayload is the payload of every journal outbox event.
type journalEventPayload struct {
	JournalEntryID int64           `json:"journalEntryID"`
	EntryNumber    string          `json:"entryNumber"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	IsPosted       bool            `json:"isPosted"`
	LineID         *int64          `json:"lineID,omitempty"`
	Actor          string          `json:"actor"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// txRepos are the repositories bound to one transaction.
type txRepos struct {
	journal portsrepo.JournalRepositoryFacade
	account portsrepo.AccountRepositoryFacade
	outbox  portsrepo.OutboxRepository
}

func (s *journalService) bind(tx pgx.Tx) txRepos {
	return txRepos{
		journal: s.journalRepo.WithTx(tx),
		account: s.accountRepo.WithTx(tx),
		outbox:  s.outboxRepo.WithTx(tx),
	}
}

func (s *journalService) CreateJournalEntry(ctx context.Context, req dto.CreateJournalEntryRequest, userID string) (*domain.JournalEntry, error) {
	if err := s.RequireActor(userID); err != nil {
		return nil, err
	}
	lines, err := validateRequestLines(req.Lines)
	if err != nil {
		s.LogWarn(ctx, err, "Rejected journal entry", slog.String("user_id", userID))
		return nil, err
	}

	now := s.Now()
	entry := &domain.JournalEntry{
		TransactionDate: req.TransactionDate,
		Description:     req.Description,
		Reference:       req.Reference,
		TotalAmount:     accounting.TotalAmount(lines),
		Lines:           stampLines(lines, userID, now),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	err = s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		if err := checkAccountsExist(ctx, r.account, entry.Lines); err != nil {
			return err
		}
		number, err := r.journal.NextEntryNumber(ctx, entry.TransactionDate)
		if err != nil {
			return err
		}
		entry.EntryNumber = number
		if err := r.journal.SaveEntry(ctx, entry); err != nil {
			return err
		}
		return s.recordEvent(ctx, r.outbox, domain.EventJournalCreated, entry, nil, userID, now)
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to create journal entry", slog.String("user_id", userID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry created",
		slog.Int64("journal_entry_id", entry.JournalEntryID),
		slog.String("entry_number", entry.EntryNumber),
		slog.Int("line_count", len(entry.Lines)))
	return entry, nil
}

func (s *journalService) UpdateJournalEntry(ctx context.Context, entryID int64, req dto.UpdateJournalEntryRequest, userID string) (*domain.JournalEntry, error) {
	if err := s.RequireActor(userID); err != nil {
		return nil, err
	}

	var entry *domain.JournalEntry
	now := s.Now()
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		var err error
		entry, err = loadDraft(ctx, r.journal, entryID)
		if err != nil {
			return err
		}

		lines, err := validateRequestLines(req.Lines)
		if err != nil {
			return err
		}
		if err := checkAccountsExist(ctx, r.account, lines); err != nil {
			return err
		}

		if _, err := r.journal.SoftDeleteLines(ctx, entryID, userID, now); err != nil {
			return err
		}
		lines = stampLines(lines, userID, now)
		if err := r.journal.InsertLines(ctx, entryID, lines); err != nil {
			return err
		}

		entry.TransactionDate = req.TransactionDate
		entry.Description = req.Description
		entry.Reference = req.Reference
		entry.TotalAmount = accounting.TotalAmount(lines)
		entry.Lines = lines
		entry.Touch(userID, now)
		if err := r.journal.UpdateEntry(ctx, *entry); err != nil {
			return err
		}
		entry.Version++
		return s.recordEvent(ctx, r.outbox, domain.EventJournalUpdated, entry, nil, userID, now)
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to update journal entry", slog.Int64("journal_entry_id", entryID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry updated",
		slog.Int64("journal_entry_id", entryID),
		slog.Int64("version", entry.Version))
	return entry, nil
}

func (s *journalService) PostJournalEntry(ctx context.Context, entryID int64, userID string) error {
	if err := s.RequireActor(userID); err != nil {
		return err
	}

	now := s.Now()
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		entry, err := r.journal.FindEntryByIDForUpdate(ctx, entryID)
		if err != nil {
			return entryLookupError(err, entryID)
		}
		if entry.IsPosted {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyPosted, entry.EntryNumber)
		}

		lines := entry.ActiveLines()
		if len(lines) == 0 {
			return domain.ErrNoLines
		}
		if err := accounting.ValidateLineShape(lines); err != nil {
			return err
		}
		if err := accounting.CheckBalance(lines); err != nil {
			return err
		}

		ids := entry.AccountIDs()
		accounts, err := r.account.FindAccountsByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if missing := missingAccounts(ids, accounts); len(missing) > 0 {
			return &domain.UnknownAccountsError{AccountIDs: missing}
		}
		changes, err := accounting.BalanceChanges(lines, accounts)
		if err != nil {
			return err
		}
		if err := r.account.UpdateAccountBalances(ctx, changes, userID, now); err != nil {
			return err
		}

		entry.MarkPosted(userID, now)
		if err := r.journal.UpdateEntry(ctx, *entry); err != nil {
			return err
		}
		entry.Version++
		return s.recordEvent(ctx, r.outbox, domain.EventJournalPosted, entry, nil, userID, now)
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to post journal entry", slog.Int64("journal_entry_id", entryID))
		return err
	}

	s.LogInfo(ctx, "Journal entry posted",
		slog.Int64("journal_entry_id", entryID),
		slog.String("posted_by", userID))
	return nil
}

func (s *journalService) DeleteJournalEntry(ctx context.Context, entryID int64, userID string) error {
	if err := s.RequireActor(userID); err != nil {
		return err
	}

	now := s.Now()
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		entry, err := loadDraft(ctx, r.journal, entryID)
		if err != nil {
			return err
		}
		deleted, err := r.journal.SoftDeleteLines(ctx, entryID, userID, now)
		if err != nil {
			return err
		}
		if err := r.journal.SoftDeleteEntry(ctx, entryID, entry.Version, userID, now); err != nil {
			return err
		}
		entry.MarkDeleted(userID, now)
		s.LogDebug(ctx, "Soft-deleted journal lines",
			slog.Int64("journal_entry_id", entryID),
			slog.Int64("line_count", deleted))
		return s.recordEvent(ctx, r.outbox, domain.EventJournalDeleted, entry, nil, userID, now)
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to delete journal entry", slog.Int64("journal_entry_id", entryID))
		return err
	}

	s.LogInfo(ctx, "Journal entry deleted", slog.Int64("journal_entry_id", entryID))
	return nil
}

func (s *journalService) DeleteJournalLine(ctx context.Context, lineID int64, userID string) error {
	if err := s.RequireActor(userID); err != nil {
		return err
	}

	now := s.Now()
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		line, err := r.journal.FindLineByID(ctx, lineID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: %d", domain.ErrLineNotFound, lineID)
			}
			return err
		}
		entry, err := loadDraft(ctx, r.journal, line.JournalEntryID)
		if err != nil {
			return err
		}

		active := entry.ActiveLines()
		remaining := make([]domain.JournalEntryLine, 0, len(active))
		found := false
		for _, l := range active {
			if l.LineID == lineID {
				found = true
				continue
			}
			remaining = append(remaining, l)
		}
		if !found {
			return fmt.Errorf("%w: %d", domain.ErrLineNotFound, lineID)
		}
		if len(remaining) == 0 {
			return domain.ErrLastLine
		}
		if err := accounting.CheckRemainingBalance(remaining); err != nil {
			return err
		}

		if err := r.journal.SoftDeleteLine(ctx, lineID, userID, now); err != nil {
			return err
		}
		entry.Lines = remaining
		entry.TotalAmount = accounting.TotalAmount(remaining)
		entry.Touch(userID, now)
		if err := r.journal.UpdateEntry(ctx, *entry); err != nil {
			return err
		}
		entry.Version++
		return s.recordEvent(ctx, r.outbox, domain.EventJournalLineDeleted, entry, &lineID, userID, now)
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to delete journal line", slog.Int64("line_id", lineID))
		return err
	}

	s.LogInfo(ctx, "Journal line deleted", slog.Int64("line_id", lineID))
	return nil
}

func (s *journalService) GetJournalEntry(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, entryLookupError(err, entryID)
	}
	return entry, nil
}

func (s *journalService) ListJournalEntries(ctx context.Context, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	var after *portsrepo.EntryCursor
	if params.NextToken != "" {
		date, id, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
		after = &portsrepo.EntryCursor{TransactionDate: date, JournalEntryID: id}
	}

	// One extra row tells us whether another page exists.
	entries, err := s.journalRepo.ListEntries(ctx, limit+1, after)
	if err != nil {
		s.LogError(ctx, err, "Failed to list journal entries")
		return nil, err
	}

	resp := &dto.ListJournalEntriesResponse{Entries: make([]dto.JournalEntryResponse, 0, len(entries))}
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.TransactionDate, last.JournalEntryID)
		resp.NextToken = &token
	}
	for i := range entries {
		resp.Entries = append(resp.Entries, dto.ToJournalEntryResponse(&entries[i]))
	}
	return resp, nil
}

func (s *journalService) recordEvent(ctx context.Context, outbox portsrepo.OutboxRepository, eventType domain.EventType, entry *domain.JournalEntry, lineID *int64, userID string, now time.Time) error {
	payload, err := json.Marshal(journalEventPayload{
		JournalEntryID: entry.JournalEntryID,
		EntryNumber:    entry.EntryNumber,
		TotalAmount:    entry.TotalAmount,
		IsPosted:       entry.IsPosted,
		LineID:         lineID,
		Actor:          userID,
		OccurredAt:     now,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return outbox.Create(ctx, &domain.OutboxEvent{
		EventID:     uuid.New(),
		AggregateID: entry.JournalEntryID,
		EventType:   eventType,
		Payload:     payload,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   now,
	})
}

// logFailure logs business rejections at warn level and everything else as an error.
func (s *journalService) logFailure(ctx context.Context, err error, msg string, keyvals ...any) {
	if apperrors.StatusCode(err) < 500 {
		s.LogWarn(ctx, err, msg, keyvals...)
		return
	}
	s.LogError(ctx, err, msg, keyvals...)
}

// validateRequestLines converts request lines and applies the shape and balance rules.
func validateRequestLines(reqLines []dto.JournalLineRequest) ([]domain.JournalEntryLine, error) {
	if len(reqLines) == 0 {
		return nil, domain.ErrNoLines
	}
	lines, err := dto.ToDomainLines(reqLines)
	if err != nil {
		return nil, err
	}
	if err := accounting.CheckBalance(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// loadDraft locks an entry and rejects it if it is already posted.
func loadDraft(ctx context.Context, repo portsrepo.JournalRepositoryFacade, entryID int64) (*domain.JournalEntry, error) {
	entry, err := repo.FindEntryByIDForUpdate(ctx, entryID)
	if err != nil {
		return nil, entryLookupError(err, entryID)
	}
	if entry.IsPosted {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryPosted, entry.EntryNumber)
	}
	return entry, nil
}

func entryLookupError(err error, entryID int64) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: %d", domain.ErrEntryNotFound, entryID)
	}
	return err
}

// checkAccountsExist reports every referenced account that is absent or soft-deleted.
// The accounts stay share-locked until the transaction ends, so they cannot be deleted under the new lines.
func checkAccountsExist(ctx context.Context, repo portsrepo.AccountTransactionSupport, lines []domain.JournalEntryLine) error {
	ids := domain.LineAccountIDs(lines)
	accounts, err := repo.FindAccountsByIDsForShare(ctx, ids)
	if err != nil {
		return err
	}
	if missing := missingAccounts(ids, accounts); len(missing) > 0 {
		return &domain.UnknownAccountsError{AccountIDs: missing}
	}
	return nil
}

func missingAccounts(ids []int64, found map[int64]domain.Account) []int64 {
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return missing
}

func stampLines(lines []domain.JournalEntryLine, userID string, now time.Time) []domain.JournalEntryLine {
	for i := range lines {
		lines[i].AuditFields = domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
			Version:       1,
		}
	}
	return lines
}
