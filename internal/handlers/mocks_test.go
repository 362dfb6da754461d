package handlers_test

import (
	"context"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/dto"
	"github.com/stretchr/testify/mock"
)

type MockAccountService struct {
	mock.Mock
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

func (m *MockAccountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, userID string) (*domain.Account, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountsByIDs(ctx context.Context, accountIDs []int64) (map[int64]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]domain.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, params dto.ListAccountsParams) ([]domain.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountService) AccountDepth(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, accountID int64, req dto.UpdateAccountRequest, userID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, accountID int64, userID string) error {
	return m.Called(ctx, accountID, userID).Error(0)
}

type MockJournalService struct {
	mock.Mock
}

var _ portssvc.JournalSvcFacade = (*MockJournalService)(nil)

func (m *MockJournalService) GetJournalEntry(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalService) ListJournalEntries(ctx context.Context, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListJournalEntriesResponse), args.Error(1)
}

func (m *MockJournalService) CreateJournalEntry(ctx context.Context, req dto.CreateJournalEntryRequest, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalService) UpdateJournalEntry(ctx context.Context, entryID int64, req dto.UpdateJournalEntryRequest, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, entryID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalService) PostJournalEntry(ctx context.Context, entryID int64, userID string) error {
	return m.Called(ctx, entryID, userID).Error(0)
}

func (m *MockJournalService) DeleteJournalEntry(ctx context.Context, entryID int64, userID string) error {
	return m.Called(ctx, entryID, userID).Error(0)
}

func (m *MockJournalService) DeleteJournalLine(ctx context.Context, lineID int64, userID string) error {
	return m.Called(ctx, lineID, userID).Error(0)
}
