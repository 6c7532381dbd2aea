package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/events"
	"github.com/kyzma-platform/kyzmainvest-bot/models"
	"github.com/kyzma-platform/kyzmainvest-bot/observability"

	log "github.com/sirupsen/logrus"
)

// compoundingPeriodsPerDay fixes the annualization convention: deposits
// compound 24 times per "year-day", one period per hourly tick.
const compoundingPeriodsPerDay = 24

type interestService struct {
	uowFactory UnitOfWorkFactory
	notifier   Notifier
	annualRate float64
}

// NewInterestService creates a new interest accrual service
func NewInterestService(uowFactory UnitOfWorkFactory, notifier Notifier, annualRate float64) InterestService {
	return &interestService{
		uowFactory: uowFactory,
		notifier:   notifier,
		annualRate: annualRate,
	}
}

// CalculateCompoundInterest computes the grown deposit for the given number
// of elapsed hours. The result is rounded to whole coins and never below
// zero; growth is never negative for a positive principal and rate.
func CalculateCompoundInterest(principal int64, annualRate float64, hours float64) (int64, error) {
	if principal <= 0 {
		return 0, nil
	}

	n := float64(compoundingPeriodsPerDay)
	t := hours / float64(compoundingPeriodsPerDay)
	amount := float64(principal) * math.Pow(1+annualRate/n, n*t)

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("interest computation overflowed for principal %d", principal)
	}

	grown := int64(math.Round(amount))
	if grown < principal {
		// Rounding must not shrink a deposit
		grown = principal
	}
	return grown, nil
}

// ApplyToAllDeposits runs one accrual batch over every account holding a
// positive deposit. A failure on one account is logged and skipped; the
// batch always runs to completion and records an accrual run.
func (s *interestService) ApplyToAllDeposits(ctx context.Context) (*models.AccrualRun, error) {
	readUow := s.uowFactory.Create()
	if err := readUow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	accounts, err := readUow.AccountRepository().GetAccountsWithDeposits(ctx)
	readUow.Rollback()
	if err != nil {
		return nil, storeError(err)
	}

	run := &models.AccrualRun{RunTime: time.Now().UTC()}
	var maxInterest int64

	for _, account := range accounts {
		interest, err := s.applyToAccount(ctx, account)
		if err != nil {
			log.WithFields(log.Fields{
				"userID":  account.UserID,
				"deposit": account.Deposit,
			}).WithError(err).Error("Skipping account in accrual batch")
			run.AccountsSkipped++
			continue
		}
		if interest == 0 {
			continue
		}
		run.TotalDistributed += interest
		run.AccountsAffected++
		if interest > maxInterest {
			maxInterest = interest
		}
	}

	run.ExecutionSummary = map[string]any{
		"accounts_checked": len(accounts),
		"annual_rate":      s.annualRate,
		"max_interest":     maxInterest,
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	if err := uow.AccrualRunRepository().Create(ctx, run); err != nil {
		return nil, storeError(err)
	}
	uow.EventBus().Publish(events.InterestAppliedEvent{
		RunID:            run.ID,
		TotalDistributed: run.TotalDistributed,
		AccountsAffected: run.AccountsAffected,
	})
	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	observability.InterestDistributed.Add(float64(run.TotalDistributed))

	s.notifier.NotifyOperator(ctx, fmt.Sprintf(
		"Interest run complete: %d KyZmaCoin distributed across %d deposits (%d skipped).",
		run.TotalDistributed, run.AccountsAffected, run.AccountsSkipped))

	return run, nil
}

// applyToAccount grows a single deposit in its own transaction so one bad
// account cannot poison the rest of the batch. Returns the interest granted.
func (s *interestService) applyToAccount(ctx context.Context, stale *models.Account) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storeError(err)
	}
	defer uow.Rollback()

	// Re-read under the row lock; the enumeration snapshot may be stale, and
	// the lock keeps a concurrent withdraw from committing between this read
	// and the deposit write-back
	account, err := uow.AccountRepository().GetByUserIDForUpdate(ctx, stale.UserID)
	if err != nil {
		return 0, storeError(err)
	}
	if account == nil || account.Deposit <= 0 {
		return 0, nil
	}

	grown, err := CalculateCompoundInterest(account.Deposit, s.annualRate, 1)
	if err != nil {
		return 0, err
	}
	interest := grown - account.Deposit
	if interest <= 0 {
		return 0, nil
	}

	if err := uow.AccountRepository().SetDeposit(ctx, account.UserID, grown); err != nil {
		return 0, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:          account.UserID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance,
		ChangeAmount:    interest,
		TransactionType: models.TransactionTypeInterest,
		TransactionMetadata: map[string]any{
			"deposit_before": account.Deposit,
			"deposit_after":  grown,
			"annual_rate":    s.annualRate,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return 0, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return 0, storeError(err)
	}

	s.notifier.NotifyOperator(ctx, fmt.Sprintf(
		"Interest for %s: %d -> %d", account.DisplayName, account.Deposit, grown))

	return interest, nil
}
