package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial     TransactionType = "initial"
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeWithdraw    TransactionType = "withdraw"
	TransactionTypeBorrow      TransactionType = "borrow"
	TransactionTypeRepay       TransactionType = "repay"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeInterest    TransactionType = "interest"
	TransactionTypeTax         TransactionType = "tax"
	TransactionTypeGrant       TransactionType = "grant"
	TransactionTypeFarm        TransactionType = "farm"
	TransactionTypeSlots       TransactionType = "slots"
	TransactionTypeRoulette    TransactionType = "roulette"
	TransactionTypeAdjustment  TransactionType = "adjustment"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}
