package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/core/services"
	"github.com/SscSPs/ledgerbook/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockAccountRepository
	txManager *fakeTxManager
	service   portssvc.AccountSvcFacade
	now       time.Time
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	suite.mockRepo = new(MockAccountRepository)
	suite.txManager = &fakeTxManager{}
	repos := portsrepo.RepositoryProvider{TxManager: suite.txManager, AccountRepo: suite.mockRepo}
	suite.service = services.NewAccountService(repos,
		services.WithAccountClock(func() time.Time { return suite.now }))
}

func int64Ptr(v int64) *int64 { return &v }

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:        "1000",
		Name:        "Cash",
		AccountType: domain.Asset,
	}

	suite.mockRepo.On("FindAccountByCode", ctx, "1000").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Account).AccountID = 7
		}).
		Return(nil).Once()

	created, err := suite.service.CreateAccount(ctx, req, "user-1")

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.Equal(int64(7), created.AccountID)
	suite.Equal("Cash", created.Name)
	suite.True(created.IsActive)
	suite.True(created.Balance.IsZero())
	suite.Equal("user-1", created.CreatedBy)
	suite.Equal(suite.now, created.CreatedAt)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_DuplicateCode() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{Code: "1000", Name: "Cash", AccountType: domain.Asset}

	suite.mockRepo.On("FindAccountByCode", ctx, "1000").Return(&domain.Account{AccountID: 1, Code: "1000"}, nil).Once()

	created, err := suite.service.CreateAccount(ctx, req, "user-1")

	suite.Nil(created)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_MissingParent() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{Code: "1010", Name: "Petty cash", AccountType: domain.Asset, ParentAccountID: int64Ptr(99)}

	suite.mockRepo.On("FindAccountByCode", ctx, "1010").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("FindAccountByID", ctx, int64(99)).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateAccount(ctx, req, "user-1")

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_InvalidTypeAndActor() {
	ctx := context.Background()

	_, err := suite.service.CreateAccount(ctx, dto.CreateAccountRequest{Code: "1", Name: "X", AccountType: "BOGUS"}, "user-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.CreateAccount(ctx, dto.CreateAccountRequest{Code: "1", Name: "X", AccountType: domain.Asset}, "")
	suite.ErrorIs(err, domain.ErrUnauthorized)

	suite.mockRepo.AssertNotCalled(suite.T(), "FindAccountByCode", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestGetAccountByID_NotFound() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByID", ctx, int64(5)).Return(nil, apperrors.ErrNotFound).Once()

	account, err := suite.service.GetAccountByID(ctx, 5)

	suite.Nil(account)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *AccountServiceTestSuite) TestListAccounts_DefaultsAndEmpty() {
	ctx := context.Background()
	suite.mockRepo.On("ListAccounts", ctx, 20, 0).Return(nil, nil).Once()

	accounts, err := suite.service.ListAccounts(ctx, dto.ListAccountsParams{})

	suite.Require().NoError(err)
	suite.NotNil(accounts)
	suite.Empty(accounts)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_AppliesProvidedFields() {
	ctx := context.Background()
	existing := &domain.Account{AccountID: 3, Code: "4000", Name: "Sales", AccountType: domain.Revenue, IsActive: true}
	newName := "Product sales"
	inactive := false

	suite.mockRepo.On("FindAccountByID", ctx, int64(3)).Return(existing, nil).Once()
	suite.mockRepo.On("UpdateAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Name == newName && !a.IsActive && a.LastUpdatedBy == "user-2" && a.LastUpdatedAt.Equal(suite.now)
	})).Return(nil).Once()

	updated, err := suite.service.UpdateAccount(ctx, 3, dto.UpdateAccountRequest{Name: &newName, IsActive: &inactive}, "user-2")

	suite.Require().NoError(err)
	suite.Equal(newName, updated.Name)
	suite.Equal(domain.Revenue, updated.AccountType)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_NoFields() {
	ctx := context.Background()
	existing := &domain.Account{AccountID: 3, Name: "Sales"}
	suite.mockRepo.On("FindAccountByID", ctx, int64(3)).Return(existing, nil).Once()

	updated, err := suite.service.UpdateAccount(ctx, 3, dto.UpdateAccountRequest{}, "user-2")

	suite.Require().NoError(err)
	suite.Equal(existing, updated)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestDeleteAccount_Guards() {
	ctx := context.Background()

	suite.Run("has sub-accounts", func() {
		suite.SetupTest()
		suite.mockRepo.On("FindAccountByIDForUpdate", ctx, int64(1)).Return(&domain.Account{AccountID: 1}, nil).Once()
		suite.mockRepo.On("CountSubAccounts", ctx, int64(1)).Return(2, nil).Once()

		err := suite.service.DeleteAccount(ctx, 1, "user-1")
		suite.ErrorIs(err, domain.ErrAccountInUse)
	})

	suite.Run("referenced by lines", func() {
		suite.SetupTest()
		suite.mockRepo.On("FindAccountByIDForUpdate", ctx, int64(1)).Return(&domain.Account{AccountID: 1}, nil).Once()
		suite.mockRepo.On("CountSubAccounts", ctx, int64(1)).Return(0, nil).Once()
		suite.mockRepo.On("CountJournalLines", ctx, int64(1)).Return(4, nil).Once()

		err := suite.service.DeleteAccount(ctx, 1, "user-1")
		suite.ErrorIs(err, domain.ErrAccountInUse)
	})

	suite.Run("non-zero balance", func() {
		suite.SetupTest()
		suite.mockRepo.On("FindAccountByIDForUpdate", ctx, int64(1)).
			Return(&domain.Account{AccountID: 1, Balance: decimal.NewFromInt(10)}, nil).Once()
		suite.mockRepo.On("CountSubAccounts", ctx, int64(1)).Return(0, nil).Once()
		suite.mockRepo.On("CountJournalLines", ctx, int64(1)).Return(0, nil).Once()

		err := suite.service.DeleteAccount(ctx, 1, "user-1")
		suite.ErrorIs(err, domain.ErrAccountInUse)
		suite.mockRepo.AssertNotCalled(suite.T(), "SoftDeleteAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func (suite *AccountServiceTestSuite) TestDeleteAccount_Success() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByIDForUpdate", ctx, int64(1)).Return(&domain.Account{AccountID: 1, Balance: decimal.Zero}, nil).Once()
	suite.mockRepo.On("CountSubAccounts", ctx, int64(1)).Return(0, nil).Once()
	suite.mockRepo.On("CountJournalLines", ctx, int64(1)).Return(0, nil).Once()
	suite.mockRepo.On("SoftDeleteAccount", ctx, int64(1), "user-1", suite.now).Return(nil).Once()

	suite.Require().NoError(suite.service.DeleteAccount(ctx, 1, "user-1"))
	suite.Equal(1, suite.txManager.calls)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockRepo.AssertNotCalled(suite.T(), "FindAccountByID", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestDeleteAccount_LocksRowBeforeChecks() {
	ctx := context.Background()
	var order []string
	record := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) { order = append(order, name) }
	}
	suite.mockRepo.On("FindAccountByIDForUpdate", ctx, int64(1)).Run(record("lock")).
		Return(&domain.Account{AccountID: 1, Balance: decimal.Zero}, nil).Once()
	suite.mockRepo.On("CountSubAccounts", ctx, int64(1)).Run(record("children")).Return(0, nil).Once()
	suite.mockRepo.On("CountJournalLines", ctx, int64(1)).Run(record("lines")).Return(0, nil).Once()
	suite.mockRepo.On("SoftDeleteAccount", ctx, int64(1), "user-1", suite.now).Run(record("delete")).Return(nil).Once()

	suite.Require().NoError(suite.service.DeleteAccount(ctx, 1, "user-1"))
	suite.Equal([]string{"lock", "children", "lines", "delete"}, order)
	suite.Equal(1, suite.txManager.calls)
}

func (suite *AccountServiceTestSuite) TestDeleteAccount_NotFound() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByIDForUpdate", ctx, int64(9)).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.DeleteAccount(ctx, 9, "user-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockRepo.AssertNotCalled(suite.T(), "CountSubAccounts", mock.Anything, mock.Anything)
	suite.mockRepo.AssertNotCalled(suite.T(), "SoftDeleteAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestAccountDepth() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByID", ctx, int64(3)).Return(&domain.Account{AccountID: 3, ParentAccountID: int64Ptr(2)}, nil)
	suite.mockRepo.On("FindAccountByID", ctx, int64(2)).Return(&domain.Account{AccountID: 2, ParentAccountID: int64Ptr(1)}, nil)
	suite.mockRepo.On("FindAccountByID", ctx, int64(1)).Return(&domain.Account{AccountID: 1}, nil)

	depth, err := suite.service.AccountDepth(ctx, 3)
	suite.Require().NoError(err)
	suite.Equal(2, depth)

	depth, err = suite.service.AccountDepth(ctx, 1)
	suite.Require().NoError(err)
	suite.Equal(0, depth)
}

func (suite *AccountServiceTestSuite) TestAccountDepth_Cycle() {
	ctx := context.Background()
	suite.mockRepo.On("FindAccountByID", ctx, int64(1)).Return(&domain.Account{AccountID: 1, ParentAccountID: int64Ptr(2)}, nil)
	suite.mockRepo.On("FindAccountByID", ctx, int64(2)).Return(&domain.Account{AccountID: 2, ParentAccountID: int64Ptr(1)}, nil)

	_, err := suite.service.AccountDepth(ctx, 1)
	assert.ErrorIs(suite.T(), err, apperrors.ErrInternal)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
