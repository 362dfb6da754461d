package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock TransactionManager ---

// fakeTxManager runs the unit of work directly and counts how often it was asked to.
type fakeTxManager struct {
	calls int
}

var _ portsrepo.TransactionManager = (*fakeTxManager)(nil)

func (f *fakeTxManager) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) WithTx(tx pgx.Tx) portsrepo.AccountRepositoryFacade {
	return m
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) CountSubAccounts(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) CountJournalLines(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SoftDeleteAccount(ctx context.Context, accountID int64, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByIDForUpdate(ctx context.Context, accountID int64) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDsForShare(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateAccountBalances(ctx context.Context, balanceChanges map[int64]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, balanceChanges, userID, now)
	return args.Error(0)
}

// --- Mock JournalRepository ---

type MockJournalRepository struct {
	mock.Mock
}

var _ portsrepo.JournalRepositoryFacade = (*MockJournalRepository)(nil)

func (m *MockJournalRepository) WithTx(tx pgx.Tx) portsrepo.JournalRepositoryFacade {
	return m
}

func (m *MockJournalRepository) FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) FindEntryByIDForUpdate(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) FindLineByID(ctx context.Context, lineID int64) (*domain.JournalEntryLine, error) {
	args := m.Called(ctx, lineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntryLine), args.Error(1)
}

func (m *MockJournalRepository) ListEntries(ctx context.Context, limit int, after *portsrepo.EntryCursor) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, limit, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) NextEntryNumber(ctx context.Context, date time.Time) (string, error) {
	args := m.Called(ctx, date)
	return args.String(0), args.Error(1)
}

func (m *MockJournalRepository) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepository) InsertLines(ctx context.Context, entryID int64, lines []domain.JournalEntryLine) error {
	args := m.Called(ctx, entryID, lines)
	return args.Error(0)
}

func (m *MockJournalRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepository) SoftDeleteEntry(ctx context.Context, entryID int64, version int64, userID string, now time.Time) error {
	args := m.Called(ctx, entryID, version, userID, now)
	return args.Error(0)
}

func (m *MockJournalRepository) SoftDeleteLines(ctx context.Context, entryID int64, userID string, now time.Time) (int64, error) {
	args := m.Called(ctx, entryID, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJournalRepository) SoftDeleteLine(ctx context.Context, lineID int64, userID string, now time.Time) error {
	args := m.Called(ctx, lineID, userID, now)
	return args.Error(0)
}

// --- Mock OutboxRepository ---

type MockOutboxRepository struct {
	mock.Mock
}

var _ portsrepo.OutboxRepository = (*MockOutboxRepository)(nil)

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) portsrepo.OutboxRepository {
	return m
}

func (m *MockOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockOutboxRepository) RecordFailure(ctx context.Context, id int64, now time.Time, maxAttempts int) error {
	args := m.Called(ctx, id, now, maxAttempts)
	return args.Error(0)
}
