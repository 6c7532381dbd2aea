package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/kyzma-platform/kyzmainvest-bot/events"
	"github.com/kyzma-platform/kyzmainvest-bot/repository/testutil"
	"github.com/kyzma-platform/kyzmainvest-bot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentNotifier struct{}

func (silentNotifier) Notify(context.Context, int64, string) {}
func (silentNotifier) NotifyOperator(context.Context, string) {}

// Two withdrawals race for the same deposit. The row lock taken at the
// validation read serializes them, so the second sees the drained deposit
// and is rejected instead of both passing a stale check.
func TestConcurrentWithdrawals(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	testutil.CreateTestAccount(t, testDB.DB, 100, "vasya", 0)
	testutil.SetTestDeposit(t, testDB.DB, 100, 500)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	svc := service.NewLedgerService(factory, silentNotifier{}, 1_000_000, 0.4, 1)

	errs := make([]error, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Withdraw(ctx, 100, 400)
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, service.ErrInsufficientDeposit)
		}
	}
	assert.Equal(t, 1, successes)

	repo := NewAccountRepository(testDB.DB)
	account, err := repo.GetByUserID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(400), account.Balance)
	assert.Equal(t, int64(100), account.Deposit)
}

// Two borrows race for the remaining credit. Debt is written back as an
// absolute value computed from the validation read, so without the row lock
// the loser's write would clobber the winner's and mint coins past the
// ceiling. Exactly one must succeed and debt must match the minted balance.
func TestConcurrentBorrowsRespectDebtCeiling(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	testutil.CreateTestAccount(t, testDB.DB, 100, "vasya", 0)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	svc := service.NewLedgerService(factory, silentNotifier{}, 1_000_000, 0.4, 1)

	errs := make([]error, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Borrow(ctx, 100, 600_000)
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, service.ErrInvalidAmount)
		}
	}
	assert.Equal(t, 1, successes)

	repo := NewAccountRepository(testDB.DB)
	account, err := repo.GetByUserID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), account.Debt)
	assert.Equal(t, int64(600_000), account.Balance)
	assert.False(t, account.DebtLimitReached)
}

// An accrual batch races a withdrawal on the same deposit. The accrual
// re-reads the deposit under the row lock before writing it back, so a
// withdrawal that commits in between is never overwritten. Whatever the
// interleaving, coins are conserved: final holdings equal the starting
// deposit plus exactly the interest the run reports.
func TestAccrualDoesNotUndoWithdrawals(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	const initialDeposit = int64(10_000)
	testutil.CreateTestAccount(t, testDB.DB, 100, "vasya", 0)
	testutil.SetTestDeposit(t, testDB.DB, 100, initialDeposit)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ledger := service.NewLedgerService(factory, silentNotifier{}, 1_000_000, 0.4, 1)
	interest := service.NewInterestService(factory, silentNotifier{}, 0.05)

	var (
		withdrawErr error
		runErr      error
		distributed int64
	)
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, withdrawErr = ledger.Withdraw(ctx, 100, 4_000)
	}()
	go func() {
		defer wg.Done()
		<-start
		run, err := interest.ApplyToAllDeposits(ctx)
		runErr = err
		if run != nil {
			distributed = run.TotalDistributed
		}
	}()
	close(start)
	wg.Wait()

	require.NoError(t, withdrawErr)
	require.NoError(t, runErr)

	repo := NewAccountRepository(testDB.DB)
	account, err := repo.GetByUserID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, initialDeposit+distributed, account.Balance+account.Deposit)
	assert.Equal(t, int64(4_000), account.Balance)
}
