package models

import (
	"time"
)

// Account represents a single user's ledger record
type Account struct {
	UserID           int64     `db:"user_id"`
	DisplayName      string    `db:"display_name"`
	Balance          int64     `db:"balance"`
	Deposit          int64     `db:"deposit"`
	Debt             int64     `db:"debt"`
	DebtLimitReached bool      `db:"debt_limit_reached"`
	LastFarmTime     time.Time `db:"last_farm_time"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// RemainingCredit returns how much the account may still borrow
// before hitting the debt ceiling.
func (a *Account) RemainingCredit(debtCeiling int64) int64 {
	remaining := debtCeiling - a.Debt
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TransferResult holds the outcome of a completed transfer
type TransferResult struct {
	Amount        int64
	RecipientID   int64
	RecipientName string
	NewBalance    int64
}

// TaxResult holds the outcome of a treasury tax skim
type TaxResult struct {
	Tax int64
	Net int64
}
