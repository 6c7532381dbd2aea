package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/models"
	"github.com/kyzma-platform/kyzmainvest-bot/observability"

	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	uowFactory  UnitOfWorkFactory
	notifier    Notifier
	debtCeiling int64
	taxRate     float64
	treasuryID  int64
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, notifier Notifier, debtCeiling int64, taxRate float64, treasuryID int64) LedgerService {
	return &ledgerService{
		uowFactory:  uowFactory,
		notifier:    notifier,
		debtCeiling: debtCeiling,
		taxRate:     taxRate,
		treasuryID:  treasuryID,
	}
}

// observe records operation metrics. Business rejections count as "rejected",
// infrastructure faults as "error".
func observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "rejected"
		if isStoreFault(err) {
			status = "error"
		}
	}
	observability.LedgerOperations.WithLabelValues(operation, status).Inc()
	observability.LedgerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func isStoreFault(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrReconciliationRequired)
}

// Deposit moves amount from the spendable balance into the deposit
func (s *ledgerService) Deposit(ctx context.Context, userID int64, amount int64) (account *models.Account, err error) {
	start := time.Now()
	defer func() { observe("deposit", start, err) }()

	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback() // No-op if already committed

	acct, err := s.getAccount(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	if acct.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, acct.Balance, amount)
	}

	// Guard re-checked atomically at write time
	if err := uow.AccountRepository().MoveToDeposit(ctx, userID, amount); err != nil {
		return nil, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   acct.Balance,
		BalanceAfter:    acct.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeDeposit,
		TransactionMetadata: map[string]any{
			"deposit_before": acct.Deposit,
			"deposit_after":  acct.Deposit + amount,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	updated := *acct
	updated.Balance -= amount
	updated.Deposit += amount
	return &updated, nil
}

// Withdraw moves amount from the deposit back into the spendable balance
func (s *ledgerService) Withdraw(ctx context.Context, userID int64, amount int64) (account *models.Account, err error) {
	start := time.Now()
	defer func() { observe("withdraw", start, err) }()

	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdraw amount must be positive", ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	acct, err := s.getAccount(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	if acct.Deposit < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientDeposit, acct.Deposit, amount)
	}

	if err := uow.AccountRepository().MoveFromDeposit(ctx, userID, amount); err != nil {
		return nil, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   acct.Balance,
		BalanceAfter:    acct.Balance + amount,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeWithdraw,
		TransactionMetadata: map[string]any{
			"deposit_before": acct.Deposit,
			"deposit_after":  acct.Deposit - amount,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	updated := *acct
	updated.Balance += amount
	updated.Deposit -= amount
	return &updated, nil
}

// Borrow credits the balance and raises debt, bounded by the debt ceiling
func (s *ledgerService) Borrow(ctx context.Context, userID int64, amount int64) (account *models.Account, err error) {
	start := time.Now()
	defer func() { observe("borrow", start, err) }()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	acct, err := s.getAccount(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	if acct.DebtLimitReached {
		return nil, fmt.Errorf("%w: debt is %d of %d", ErrDebtCeilingReached, acct.Debt, s.debtCeiling)
	}
	if remaining := acct.RemainingCredit(s.debtCeiling); amount <= 0 || amount > remaining {
		return nil, fmt.Errorf("%w: may borrow between 1 and %d", ErrInvalidAmount, remaining)
	}

	newDebt := acct.Debt + amount
	limitReached := newDebt >= s.debtCeiling

	if err := uow.AccountRepository().AddBalance(ctx, userID, amount); err != nil {
		return nil, storeError(err)
	}
	if err := uow.AccountRepository().UpdateDebt(ctx, userID, newDebt, limitReached); err != nil {
		return nil, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   acct.Balance,
		BalanceAfter:    acct.Balance + amount,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeBorrow,
		TransactionMetadata: map[string]any{
			"debt_before": acct.Debt,
			"debt_after":  newDebt,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	updated := *acct
	updated.Balance += amount
	updated.Debt = newDebt
	updated.DebtLimitReached = limitReached
	return &updated, nil
}

// Repay pays debt down from the balance. Amounts above the outstanding debt
// are clamped, not rejected; the applied amount is returned.
func (s *ledgerService) Repay(ctx context.Context, userID int64, amount int64) (account *models.Account, applied int64, err error) {
	start := time.Now()
	defer func() { observe("repay", start, err) }()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, 0, storeError(err)
	}
	defer uow.Rollback()

	acct, err := s.getAccount(ctx, uow, userID)
	if err != nil {
		return nil, 0, err
	}

	if acct.Debt == 0 {
		return nil, 0, ErrNoDebt
	}
	if amount <= 0 {
		return nil, 0, fmt.Errorf("%w: repay amount must be positive", ErrInvalidAmount)
	}
	if amount > acct.Balance {
		return nil, 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, acct.Balance, amount)
	}

	applied = amount
	if applied > acct.Debt {
		applied = acct.Debt
	}

	newDebt := acct.Debt - applied
	limitReached := newDebt >= s.debtCeiling

	if err := uow.AccountRepository().DeductBalance(ctx, userID, applied); err != nil {
		return nil, 0, storeError(err)
	}
	if err := uow.AccountRepository().UpdateDebt(ctx, userID, newDebt, limitReached); err != nil {
		return nil, 0, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   acct.Balance,
		BalanceAfter:    acct.Balance - applied,
		ChangeAmount:    -applied,
		TransactionType: models.TransactionTypeRepay,
		TransactionMetadata: map[string]any{
			"requested":   amount,
			"applied":     applied,
			"debt_before": acct.Debt,
			"debt_after":  newDebt,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, 0, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, 0, storeError(err)
	}

	updated := *acct
	updated.Balance -= applied
	updated.Debt = newDebt
	updated.DebtLimitReached = limitReached
	return &updated, applied, nil
}

// Transfer moves amount between two accounts
func (s *ledgerService) Transfer(ctx context.Context, fromUserID, toUserID int64, amount int64) (result *models.TransferResult, err error) {
	start := time.Now()
	defer func() { observe("transfer", start, err) }()
	return s.transfer(ctx, fromUserID, toUserID, "", amount)
}

// TransferByName resolves the recipient by display name, then transfers
func (s *ledgerService) TransferByName(ctx context.Context, fromUserID int64, recipientName string, amount int64) (result *models.TransferResult, err error) {
	start := time.Now()
	defer func() { observe("transfer", start, err) }()
	return s.transfer(ctx, fromUserID, 0, recipientName, amount)
}

func (s *ledgerService) transfer(ctx context.Context, fromUserID, toUserID int64, recipientName string, amount int64) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	sender, err := s.getAccount(ctx, uow, fromUserID)
	if err != nil {
		return nil, err
	}

	if sender.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, amount)
	}

	var recipient *models.Account
	if recipientName != "" {
		recipient, err = uow.AccountRepository().GetByDisplayName(ctx, recipientName)
	} else {
		recipient, err = uow.AccountRepository().GetByUserID(ctx, toUserID)
	}
	if err != nil {
		return nil, storeError(err)
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}
	if recipient.UserID == fromUserID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", ErrInvalidAmount)
	}

	// Debit first. Both writes land in the same transaction, so a failed
	// credit rolls the debit back; a rollback failure is the one case that
	// leaves a debited sender without a credited recipient.
	if err := uow.AccountRepository().DeductBalance(ctx, fromUserID, amount); err != nil {
		return nil, storeError(err)
	}
	if err := uow.AccountRepository().AddBalance(ctx, recipient.UserID, amount); err != nil {
		creditErr := err
		if rbErr := uow.Rollback(); rbErr != nil {
			return nil, s.reconciliationAlert(ctx, fromUserID, recipient.UserID, amount, creditErr)
		}
		return nil, storeError(creditErr)
	}

	fromHistory := &models.BalanceHistory{
		UserID:          fromUserID,
		BalanceBefore:   sender.Balance,
		BalanceAfter:    sender.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeTransferOut,
		TransactionMetadata: map[string]any{
			"recipient_id":   recipient.UserID,
			"recipient_name": recipient.DisplayName,
		},
	}
	if err := RecordBalanceChange(ctx, uow, fromHistory); err != nil {
		return nil, storeError(err)
	}

	toHistory := &models.BalanceHistory{
		UserID:          recipient.UserID,
		BalanceBefore:   recipient.Balance,
		BalanceAfter:    recipient.Balance + amount,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeTransferIn,
		TransactionMetadata: map[string]any{
			"sender_id":   fromUserID,
			"sender_name": sender.DisplayName,
		},
	}
	if err := RecordBalanceChange(ctx, uow, toHistory); err != nil {
		return nil, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	// Best-effort notifications; failures stay inside the notifier
	s.notifier.Notify(ctx, fromUserID,
		fmt.Sprintf("You transferred %d KyZmaCoin to %s.", amount, recipient.DisplayName))
	s.notifier.Notify(ctx, recipient.UserID,
		fmt.Sprintf("You received %d KyZmaCoin from %s.", amount, sender.DisplayName))

	return &models.TransferResult{
		Amount:        amount,
		RecipientID:   recipient.UserID,
		RecipientName: recipient.DisplayName,
		NewBalance:    sender.Balance - amount,
	}, nil
}

// reconciliationAlert surfaces a partial transfer failure to the operator.
// This path must never be silent.
func (s *ledgerService) reconciliationAlert(ctx context.Context, fromUserID, toUserID, amount int64, cause error) error {
	log.WithFields(log.Fields{
		"sender":    fromUserID,
		"recipient": toUserID,
		"amount":    amount,
	}).WithError(cause).Error("Transfer left accounts inconsistent")

	s.notifier.NotifyOperator(ctx, fmt.Sprintf(
		"RECONCILIATION REQUIRED: transfer of %d from %d to %d failed after debit: %v",
		amount, fromUserID, toUserID, cause))

	return fmt.Errorf("%w: transfer of %d from %d to %d: %v",
		ErrReconciliationRequired, amount, fromUserID, toUserID, cause)
}

// AdjustBalance applies a signed delta with no floor. Minigame callers have
// already validated their own amounts.
func (s *ledgerService) AdjustBalance(ctx context.Context, userID int64, delta int64, reason models.TransactionType, metadata map[string]any) (account *models.Account, err error) {
	start := time.Now()
	defer func() { observe("adjust", start, err) }()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	acct, err := s.getAccount(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	updated, err := adjustBalanceTx(ctx, uow, acct, delta, reason, metadata)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

// adjustBalanceTx applies a signed delta inside an already-open unit of work
func adjustBalanceTx(ctx context.Context, uow UnitOfWork, acct *models.Account, delta int64, reason models.TransactionType, metadata map[string]any) (*models.Account, error) {
	if err := uow.AccountRepository().AddBalance(ctx, acct.UserID, delta); err != nil {
		return nil, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:              acct.UserID,
		BalanceBefore:       acct.Balance,
		BalanceAfter:        acct.Balance + delta,
		ChangeAmount:        delta,
		TransactionType:     reason,
		TransactionMetadata: metadata,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storeError(err)
	}

	updated := *acct
	updated.Balance += delta
	return &updated, nil
}

// ApplyTax skims the configured tax rate from amount into the treasury
func (s *ledgerService) ApplyTax(ctx context.Context, amount int64) (result *models.TaxResult, err error) {
	start := time.Now()
	defer func() { observe("tax", start, err) }()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	result, err = applyTaxTx(ctx, uow, amount, s.taxRate, s.treasuryID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}
	return result, nil
}

// applyTaxTx computes and routes the treasury skim inside an open unit of
// work. The tax is rounded half-up so the treasury is never systematically
// under-credited; net is derived as amount - tax so the two always sum back.
func applyTaxTx(ctx context.Context, uow UnitOfWork, amount int64, rate float64, treasuryID int64) (*models.TaxResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: taxable amount must be positive", ErrInvalidAmount)
	}

	tax := int64(math.Floor(float64(amount)*rate + 0.5))
	net := amount - tax

	if tax > 0 {
		treasury, err := uow.AccountRepository().GetByUserIDForUpdate(ctx, treasuryID)
		if err != nil {
			return nil, storeError(err)
		}
		if treasury == nil {
			return nil, fmt.Errorf("%w: treasury account %d", ErrAccountNotFound, treasuryID)
		}
		if _, err := adjustBalanceTx(ctx, uow, treasury, tax, models.TransactionTypeTax, map[string]any{
			"taxed_amount": amount,
			"tax_rate":     rate,
		}); err != nil {
			return nil, err
		}
	}

	return &models.TaxResult{Tax: tax, Net: net}, nil
}

// getAccount reads an account inside the unit of work with its row lock
// taken, mapping a missing row to ErrAccountNotFound. The lock serializes
// the read-validate-write sequence against concurrent operations.
func (s *ledgerService) getAccount(ctx context.Context, uow UnitOfWork, userID int64) (*models.Account, error) {
	acct, err := uow.AccountRepository().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
	}
	return acct, nil
}
