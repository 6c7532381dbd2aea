package service

import (
	"context"
	"testing"

	"github.com/kyzma-platform/kyzmainvest-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testOperatorID = int64(77)

func setupAccountTest(startingBalance int64) (AccountService, *MockUnitOfWorkFactory, *MockUnitOfWork, *MockAccountRepository, *MockBalanceHistoryRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockHistoryRepo, nil)

	svc := NewAccountService(mockFactory, testOperatorID, startingBalance)
	return svc, mockFactory, mockUoW, mockAccountRepo, mockHistoryRepo
}

func TestAccountService_GetOrCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing account untouched", func(t *testing.T) {
		svc, mockFactory, mockUoW, mockAccountRepo, _ := setupAccountTest(0)

		existing := &models.Account{UserID: 100, DisplayName: "vasya", Balance: 1234}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetByUserID", ctx, int64(100)).Return(existing, nil)

		account, err := svc.GetOrCreateAccount(ctx, 100, "vasya")
		require.NoError(t, err)
		assert.Equal(t, int64(1234), account.Balance)
		mockAccountRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates missing account with starting balance", func(t *testing.T) {
		svc, mockFactory, mockUoW, mockAccountRepo, mockHistoryRepo := setupAccountTest(0)

		created := &models.Account{UserID: 100, DisplayName: "vasya", Balance: 0}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetByUserID", ctx, int64(100)).Return(nil, nil)
		mockAccountRepo.On("Create", ctx, int64(100), "vasya", int64(0)).Return(created, nil)
		mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.TransactionType == models.TransactionTypeInitial && h.BalanceAfter == 0
		})).Return(nil)

		account, err := svc.GetOrCreateAccount(ctx, 100, "vasya")
		require.NoError(t, err)
		assert.Equal(t, int64(0), account.Balance)
		assert.Equal(t, int64(0), account.Deposit)
		assert.Equal(t, int64(0), account.Debt)

		mockAccountRepo.AssertExpectations(t)
		mockHistoryRepo.AssertExpectations(t)
	})
}

func TestAccountService_GetAccount(t *testing.T) {
	ctx := context.Background()

	svc, mockFactory, mockUoW, mockAccountRepo, _ := setupAccountTest(0)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockAccountRepo.On("GetByUserID", ctx, int64(999)).Return(nil, nil)

	_, err := svc.GetAccount(ctx, 999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountService_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("Top excludes the operator", func(t *testing.T) {
		svc, mockFactory, mockUoW, mockAccountRepo, _ := setupAccountTest(0)

		expected := []*models.Account{{UserID: 1, Balance: 5000}}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetTopByBalance", ctx, 10, testOperatorID).Return(expected, nil)

		accounts, err := svc.Top(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, expected, accounts)
	})

	t.Run("Debtors excludes the operator", func(t *testing.T) {
		svc, mockFactory, mockUoW, mockAccountRepo, _ := setupAccountTest(0)

		expected := []*models.Account{{UserID: 2, Debt: 400}}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetDebtors", ctx, testOperatorID).Return(expected, nil)

		debtors, err := svc.Debtors(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, debtors)
	})

	t.Run("NegativeBalances excludes the operator", func(t *testing.T) {
		svc, mockFactory, mockUoW, mockAccountRepo, _ := setupAccountTest(0)

		expected := []*models.Account{{UserID: 3, Balance: -200}}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetNegativeBalances", ctx, 5, testOperatorID).Return(expected, nil)

		accounts, err := svc.NegativeBalances(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, expected, accounts)
	})
}

func TestAccountService_GrantAll(t *testing.T) {
	ctx := context.Background()

	t.Run("credits every account", func(t *testing.T) {
		svc, mockFactory, mockUoW, mockAccountRepo, mockHistoryRepo := setupAccountTest(0)

		all := []*models.Account{
			{UserID: 1, Balance: 0},
			{UserID: 2, Balance: 100},
		}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetAll", ctx).Return(all, nil)
		mockAccountRepo.On("AddBalance", ctx, int64(1), int64(50)).Return(nil)
		mockAccountRepo.On("AddBalance", ctx, int64(2), int64(50)).Return(nil)
		mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.TransactionType == models.TransactionTypeGrant && h.ChangeAmount == 50
		})).Return(nil).Times(2)

		count, err := svc.GrantAll(ctx, 50)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		mockAccountRepo.AssertExpectations(t)
		mockHistoryRepo.AssertExpectations(t)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		svc, _, _, _, _ := setupAccountTest(0)

		_, err := svc.GrantAll(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}
