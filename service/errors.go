package service

import (
	"errors"
	"fmt"
	"time"
)

// Ledger failure taxonomy. Business-rule rejections are expected outcomes:
// they are returned to the caller as typed errors and never logged as faults.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientDeposit    = errors.New("insufficient deposit")
	ErrDebtCeilingReached     = errors.New("debt ceiling reached")
	ErrNoDebt                 = errors.New("no outstanding debt")
	ErrAccountNotFound        = errors.New("account not found")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrStoreUnavailable       = errors.New("account store unavailable")
	ErrReconciliationRequired = errors.New("reconciliation required")
)

// CooldownError reports a farm attempt before the cooldown elapsed
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("farm on cooldown: %s remaining", e.Remaining.Round(time.Second))
}

// storeError wraps an infrastructure failure from the account store.
// Errors that already carry a ledger sentinel pass through unchanged.
func storeError(err error) error {
	for _, sentinel := range []error{
		ErrInvalidAmount, ErrInsufficientBalance, ErrInsufficientDeposit,
		ErrDebtCeilingReached, ErrNoDebt, ErrAccountNotFound,
		ErrRecipientNotFound, ErrReconciliationRequired, ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
