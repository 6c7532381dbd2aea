package service

import (
	"context"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/events"
	"github.com/kyzma-platform/kyzmainvest-bot/models"
)

// AccountRepository defines the interface for account data access.
// Write methods that carry a guard (DeductBalance, MoveToDeposit,
// MoveFromDeposit) apply it atomically in the store: the update only
// lands when the guard still holds at write time.
type AccountRepository interface {
	// GetByUserID retrieves an account by user ID, or nil if it does not exist
	GetByUserID(ctx context.Context, userID int64) (*models.Account, error)

	// GetByUserIDForUpdate retrieves an account and holds its row lock for the
	// rest of the transaction, or nil if it does not exist. Every
	// read-validate-write sequence on an account reads through this method so
	// concurrent operations on the same account serialize at the store.
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.Account, error)

	// GetByDisplayName retrieves an account by display name, or nil if it does not exist
	GetByDisplayName(ctx context.Context, displayName string) (*models.Account, error)

	// Create creates a new account with the starting balance
	Create(ctx context.Context, userID int64, displayName string, startingBalance int64) (*models.Account, error)

	// AddBalance applies a signed delta to an account's balance; no floor is enforced
	AddBalance(ctx context.Context, userID int64, delta int64) error

	// DeductBalance subtracts from balance, failing with ErrInsufficientBalance
	// unless balance >= amount at write time
	DeductBalance(ctx context.Context, userID int64, amount int64) error

	// MoveToDeposit moves amount from balance into deposit, guarded on balance >= amount
	MoveToDeposit(ctx context.Context, userID int64, amount int64) error

	// MoveFromDeposit moves amount from deposit into balance, guarded on deposit >= amount
	MoveFromDeposit(ctx context.Context, userID int64, amount int64) error

	// SetDeposit overwrites the deposit field (accrual write-back)
	SetDeposit(ctx context.Context, userID int64, newDeposit int64) error

	// UpdateDebt overwrites debt and the persisted debt_limit_reached flag together
	UpdateDebt(ctx context.Context, userID int64, newDebt int64, limitReached bool) error

	// SetLastFarmTime records the most recent farm action
	SetLastFarmTime(ctx context.Context, userID int64, farmTime time.Time) error

	// GetAccountsWithDeposits returns all accounts with deposit > 0
	GetAccountsWithDeposits(ctx context.Context) ([]*models.Account, error)

	// GetDebtors returns all accounts with debt > 0, excluding the given user ID
	GetDebtors(ctx context.Context, excludeUserID int64) ([]*models.Account, error)

	// GetTopByBalance returns the richest accounts, excluding the given user ID
	GetTopByBalance(ctx context.Context, limit int, excludeUserID int64) ([]*models.Account, error)

	// GetNegativeBalances returns accounts below zero, most negative first
	GetNegativeBalances(ctx context.Context, limit int, excludeUserID int64) ([]*models.Account, error)

	// GetAll returns all accounts
	GetAll(ctx context.Context) ([]*models.Account, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// AccrualRunRepository defines the interface for accrual run bookkeeping
type AccrualRunRepository interface {
	// Create records a completed accrual run
	Create(ctx context.Context, run *models.AccrualRun) error

	// GetLatest returns the most recent accrual run, or nil if none exist
	GetLatest(ctx context.Context) (*models.AccrualRun, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// Notifier is the notification sink contract: one-way, fire-and-forget
// delivery to a user or to the operator. Failures are logged by the
// implementation, never propagated to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
	NotifyOperator(ctx context.Context, text string)
}

// LedgerService defines the balance mutation operations
type LedgerService interface {
	// Deposit moves amount from spendable balance into the interest-bearing deposit
	Deposit(ctx context.Context, userID int64, amount int64) (*models.Account, error)

	// Withdraw moves amount from the deposit back into the spendable balance
	Withdraw(ctx context.Context, userID int64, amount int64) (*models.Account, error)

	// Borrow credits balance and raises debt, bounded by the debt ceiling
	Borrow(ctx context.Context, userID int64, amount int64) (*models.Account, error)

	// Repay pays debt down from balance; the applied amount is clamped to the
	// outstanding debt and returned alongside the updated account
	Repay(ctx context.Context, userID int64, amount int64) (*models.Account, int64, error)

	// Transfer moves amount between two accounts and notifies both parties
	Transfer(ctx context.Context, fromUserID, toUserID int64, amount int64) (*models.TransferResult, error)

	// TransferByName resolves the recipient by display name, then transfers
	TransferByName(ctx context.Context, fromUserID int64, recipientName string, amount int64) (*models.TransferResult, error)

	// AdjustBalance applies a signed delta with no validation beyond account
	// existence; minigame callers perform their own amount checks
	AdjustBalance(ctx context.Context, userID int64, delta int64, reason models.TransactionType, metadata map[string]any) (*models.Account, error)

	// ApplyTax skims the configured tax from amount into the treasury account
	// and returns the split
	ApplyTax(ctx context.Context, amount int64) (*models.TaxResult, error)
}

// AccountService defines account lifecycle and query operations
type AccountService interface {
	// GetOrCreateAccount retrieves an existing account or creates a zeroed one
	GetOrCreateAccount(ctx context.Context, userID int64, displayName string) (*models.Account, error)

	// GetAccount retrieves an account, failing with ErrAccountNotFound if missing
	GetAccount(ctx context.Context, userID int64) (*models.Account, error)

	// Top returns the scoreboard by balance, excluding the operator account
	Top(ctx context.Context, limit int) ([]*models.Account, error)

	// NegativeBalances returns accounts below zero, excluding the operator account
	NegativeBalances(ctx context.Context, limit int) ([]*models.Account, error)

	// Debtors returns accounts with outstanding debt, excluding the operator account
	Debtors(ctx context.Context) ([]*models.Account, error)

	// GrantAll credits every account with the given amount (operator handout)
	GrantAll(ctx context.Context, amount int64) (int, error)
}

// InterestService defines the compound interest accrual batch
type InterestService interface {
	// ApplyToAllDeposits runs one accrual batch over all positive deposits
	// and records the run
	ApplyToAllDeposits(ctx context.Context) (*models.AccrualRun, error)
}

// GamesService defines the minigame outcome generators. They compute a coin
// delta and route it through the ledger's generic adjustment primitive.
type GamesService interface {
	// Farm awards coins once per cooldown period
	Farm(ctx context.Context, userID int64) (*models.FarmResult, error)

	// Slots spins the slot machine
	Slots(ctx context.Context, userID int64) (*models.SlotsResult, error)

	// Roulette resolves a red/black/number bet for the given stake
	Roulette(ctx context.Context, userID int64, stake int64, bet string) (*models.RouletteResult, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	AccrualRunRepository() AccrualRunRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
