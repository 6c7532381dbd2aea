package service

import (
	"context"
	"testing"

	"github.com/kyzma-platform/kyzmainvest-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCalculateCompoundInterest(t *testing.T) {
	t.Run("grows a deposit by one hourly period", func(t *testing.T) {
		// 1000 * (1 + 0.05/24)^1 = 1002.08, rounds to 1002
		grown, err := CalculateCompoundInterest(1000, 0.05, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1002), grown)
	})

	t.Run("small deposits round back to the principal", func(t *testing.T) {
		grown, err := CalculateCompoundInterest(100, 0.05, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(100), grown)
	})

	t.Run("zero and negative principals yield zero", func(t *testing.T) {
		grown, err := CalculateCompoundInterest(0, 0.05, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), grown)

		grown, err = CalculateCompoundInterest(-500, 0.05, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), grown)
	})

	t.Run("never decreases the deposit", func(t *testing.T) {
		for _, principal := range []int64{1, 7, 100, 999, 123456, 1_000_000} {
			grown, err := CalculateCompoundInterest(principal, 0.05, 1)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, grown, principal, "principal %d shrank", principal)
		}
	})
}

func TestInterestService_ApplyToAllDeposits(t *testing.T) {
	ctx := context.Background()

	t.Run("distributes interest and records the run", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		mockNotifier := new(MockNotifier)

		// Enumeration unit of work
		readUoW := new(MockUnitOfWork)
		readAccountRepo := new(MockAccountRepository)
		readUoW.SetRepositories(readAccountRepo, nil, nil)
		readUoW.On("Begin", ctx).Return(nil)
		readUoW.On("Rollback").Return(nil)
		readAccountRepo.On("GetAccountsWithDeposits", ctx).Return([]*models.Account{
			{UserID: 100, DisplayName: "vasya", Balance: 0, Deposit: 1000},
			{UserID: 200, DisplayName: "petya", Balance: 0, Deposit: 100},
		}, nil)

		// Per-account unit of work for the deposit that earns interest
		bigUoW := new(MockUnitOfWork)
		bigAccountRepo := new(MockAccountRepository)
		bigHistoryRepo := new(MockBalanceHistoryRepository)
		bigUoW.SetRepositories(bigAccountRepo, bigHistoryRepo, nil)
		bigUoW.On("Begin", ctx).Return(nil)
		bigUoW.On("Commit").Return(nil)
		bigUoW.On("Rollback").Return(nil)
		bigAccountRepo.On("GetByUserIDForUpdate", ctx, int64(100)).Return(
			&models.Account{UserID: 100, DisplayName: "vasya", Balance: 0, Deposit: 1000}, nil)
		bigAccountRepo.On("SetDeposit", ctx, int64(100), int64(1002)).Return(nil)
		bigHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.TransactionType == models.TransactionTypeInterest && h.ChangeAmount == 2
		})).Return(nil)

		// Per-account unit of work for the deposit too small to earn anything
		smallUoW := new(MockUnitOfWork)
		smallAccountRepo := new(MockAccountRepository)
		smallUoW.SetRepositories(smallAccountRepo, nil, nil)
		smallUoW.On("Begin", ctx).Return(nil)
		smallUoW.On("Rollback").Return(nil)
		smallAccountRepo.On("GetByUserIDForUpdate", ctx, int64(200)).Return(
			&models.Account{UserID: 200, DisplayName: "petya", Balance: 0, Deposit: 100}, nil)

		// Unit of work that records the accrual run
		runUoW := new(MockUnitOfWork)
		runRepo := new(MockAccrualRunRepository)
		runUoW.SetRepositories(nil, nil, runRepo)
		runUoW.On("Begin", ctx).Return(nil)
		runUoW.On("Commit").Return(nil)
		runUoW.On("Rollback").Return(nil)
		runRepo.On("Create", ctx, mock.MatchedBy(func(run *models.AccrualRun) bool {
			return run.TotalDistributed == 2 && run.AccountsAffected == 1 && run.AccountsSkipped == 0
		})).Return(nil)

		mockFactory.On("Create").Return(readUoW).Once()
		mockFactory.On("Create").Return(bigUoW).Once()
		mockFactory.On("Create").Return(smallUoW).Once()
		mockFactory.On("Create").Return(runUoW).Once()

		mockNotifier.On("NotifyOperator", ctx, mock.Anything).Return()

		svc := NewInterestService(mockFactory, mockNotifier, 0.05)

		run, err := svc.ApplyToAllDeposits(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), run.TotalDistributed)
		assert.Equal(t, 1, run.AccountsAffected)
		assert.Equal(t, 0, run.AccountsSkipped)

		bigAccountRepo.AssertExpectations(t)
		runRepo.AssertExpectations(t)
	})

	t.Run("a failing account is skipped, not fatal", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		mockNotifier := new(MockNotifier)

		readUoW := new(MockUnitOfWork)
		readAccountRepo := new(MockAccountRepository)
		readUoW.SetRepositories(readAccountRepo, nil, nil)
		readUoW.On("Begin", ctx).Return(nil)
		readUoW.On("Rollback").Return(nil)
		readAccountRepo.On("GetAccountsWithDeposits", ctx).Return([]*models.Account{
			{UserID: 100, Deposit: 1000},
		}, nil)

		brokenUoW := new(MockUnitOfWork)
		brokenAccountRepo := new(MockAccountRepository)
		brokenUoW.SetRepositories(brokenAccountRepo, nil, nil)
		brokenUoW.On("Begin", ctx).Return(nil)
		brokenUoW.On("Rollback").Return(nil)
		brokenAccountRepo.On("GetByUserIDForUpdate", ctx, int64(100)).Return(nil, assert.AnError)

		runUoW := new(MockUnitOfWork)
		runRepo := new(MockAccrualRunRepository)
		runUoW.SetRepositories(nil, nil, runRepo)
		runUoW.On("Begin", ctx).Return(nil)
		runUoW.On("Commit").Return(nil)
		runUoW.On("Rollback").Return(nil)
		runRepo.On("Create", ctx, mock.MatchedBy(func(run *models.AccrualRun) bool {
			return run.TotalDistributed == 0 && run.AccountsSkipped == 1
		})).Return(nil)

		mockFactory.On("Create").Return(readUoW).Once()
		mockFactory.On("Create").Return(brokenUoW).Once()
		mockFactory.On("Create").Return(runUoW).Once()

		mockNotifier.On("NotifyOperator", ctx, mock.Anything).Return()

		svc := NewInterestService(mockFactory, mockNotifier, 0.05)

		run, err := svc.ApplyToAllDeposits(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, run.AccountsSkipped)
		runRepo.AssertExpectations(t)
	})
}
