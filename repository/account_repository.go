package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/database"
	"github.com/kyzma-platform/kyzmainvest-bot/models"
	"github.com/kyzma-platform/kyzmainvest-bot/service"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `user_id, display_name, balance, deposit, debt, debt_limit_reached, last_farm_time, created_at, updated_at`

// AccountRepository implements the service.AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.UserID,
		&account.DisplayName,
		&account.Balance,
		&account.Deposit,
		&account.Debt,
		&account.DebtLimitReached,
		&account.LastFarmTime,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByUserID retrieves an account by user ID, or nil if it does not exist
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE user_id = $1`, accountColumns)

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", userID, err)
	}
	return account, nil
}

// GetByUserIDForUpdate retrieves an account with FOR UPDATE, holding the row
// lock until the transaction ends. Writers that overwrite a field computed
// from a prior read (debt, deposit accrual) depend on this lock.
func (r *AccountRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE user_id = $1 FOR UPDATE`, accountColumns)

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}
	return account, nil
}

// GetByDisplayName retrieves an account by display name, or nil if it does
// not exist. Display names are matched case-insensitively; on a collision
// the oldest account wins.
func (r *AccountRepository) GetByDisplayName(ctx context.Context, displayName string) (*models.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE LOWER(display_name) = LOWER($1)
		ORDER BY created_at
		LIMIT 1`, accountColumns)

	account, err := scanAccount(r.q.QueryRow(ctx, query, displayName))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by name %q: %w", displayName, err)
	}
	return account, nil
}

// Create creates a new account with the starting balance
func (r *AccountRepository) Create(ctx context.Context, userID int64, displayName string, startingBalance int64) (*models.Account, error) {
	query := fmt.Sprintf(`
		INSERT INTO accounts (user_id, display_name, balance)
		VALUES ($1, $2, $3)
		RETURNING %s`, accountColumns)

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, displayName, startingBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", userID, err)
	}
	return account, nil
}

// AddBalance applies a signed delta to an account's balance; no floor is enforced
func (r *AccountRepository) AddBalance(ctx context.Context, userID int64, delta int64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to add balance for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", service.ErrAccountNotFound, userID)
	}
	return nil
}

// DeductBalance subtracts from balance only while balance >= amount.
// The guard is part of the UPDATE so concurrent spends cannot both pass it.
func (r *AccountRepository) DeductBalance(ctx context.Context, userID int64, amount int64) error {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to deduct balance for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return r.guardFailure(ctx, userID, service.ErrInsufficientBalance)
	}
	return nil
}

// MoveToDeposit moves amount from balance into deposit, guarded on balance >= amount
func (r *AccountRepository) MoveToDeposit(ctx context.Context, userID int64, amount int64) error {
	query := `
		UPDATE accounts
		SET balance = balance - $1, deposit = deposit + $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to move to deposit for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return r.guardFailure(ctx, userID, service.ErrInsufficientBalance)
	}
	return nil
}

// MoveFromDeposit moves amount from deposit into balance, guarded on deposit >= amount
func (r *AccountRepository) MoveFromDeposit(ctx context.Context, userID int64, amount int64) error {
	query := `
		UPDATE accounts
		SET deposit = deposit - $1, balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2 AND deposit >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to move from deposit for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return r.guardFailure(ctx, userID, service.ErrInsufficientDeposit)
	}
	return nil
}

// SetDeposit overwrites the deposit field
func (r *AccountRepository) SetDeposit(ctx context.Context, userID int64, newDeposit int64) error {
	query := `
		UPDATE accounts
		SET deposit = $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, newDeposit, userID)
	if err != nil {
		return fmt.Errorf("failed to set deposit for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", service.ErrAccountNotFound, userID)
	}
	return nil
}

// UpdateDebt overwrites debt and the debt_limit_reached flag together
func (r *AccountRepository) UpdateDebt(ctx context.Context, userID int64, newDebt int64, limitReached bool) error {
	query := `
		UPDATE accounts
		SET debt = $1, debt_limit_reached = $2, updated_at = NOW()
		WHERE user_id = $3
	`

	result, err := r.q.Exec(ctx, query, newDebt, limitReached, userID)
	if err != nil {
		return fmt.Errorf("failed to update debt for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", service.ErrAccountNotFound, userID)
	}
	return nil
}

// SetLastFarmTime records the most recent farm action
func (r *AccountRepository) SetLastFarmTime(ctx context.Context, userID int64, farmTime time.Time) error {
	query := `
		UPDATE accounts
		SET last_farm_time = $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, farmTime, userID)
	if err != nil {
		return fmt.Errorf("failed to set farm time for account %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", service.ErrAccountNotFound, userID)
	}
	return nil
}

// GetAccountsWithDeposits returns all accounts with deposit > 0
func (r *AccountRepository) GetAccountsWithDeposits(ctx context.Context) ([]*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE deposit > 0 ORDER BY user_id`, accountColumns)
	return r.queryAccounts(ctx, query)
}

// GetDebtors returns all accounts with debt > 0, excluding the given user ID
func (r *AccountRepository) GetDebtors(ctx context.Context, excludeUserID int64) ([]*models.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE debt > 0 AND user_id != $1
		ORDER BY debt DESC`, accountColumns)
	return r.queryAccounts(ctx, query, excludeUserID)
}

// GetTopByBalance returns the richest accounts, excluding the given user ID
func (r *AccountRepository) GetTopByBalance(ctx context.Context, limit int, excludeUserID int64) ([]*models.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE user_id != $2
		ORDER BY balance DESC, user_id
		LIMIT $1`, accountColumns)
	return r.queryAccounts(ctx, query, limit, excludeUserID)
}

// GetNegativeBalances returns accounts below zero, most negative first
func (r *AccountRepository) GetNegativeBalances(ctx context.Context, limit int, excludeUserID int64) ([]*models.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE balance < 0 AND user_id != $2
		ORDER BY balance, user_id
		LIMIT $1`, accountColumns)
	return r.queryAccounts(ctx, query, limit, excludeUserID)
}

// GetAll returns all accounts
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts ORDER BY user_id`, accountColumns)
	return r.queryAccounts(ctx, query)
}

func (r *AccountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// guardFailure distinguishes a missing row from a guard that did not hold
func (r *AccountRepository) guardFailure(ctx context.Context, userID int64, guardErr error) error {
	account, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: user %d", service.ErrAccountNotFound, userID)
	}
	return fmt.Errorf("%w: user %d", guardErr, userID)
}
