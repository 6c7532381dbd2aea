package testutil

import (
	"context"
	"testing"

	"github.com/kyzma-platform/kyzmainvest-bot/database"
	"github.com/kyzma-platform/kyzmainvest-bot/models"

	"github.com/stretchr/testify/require"
)

// CreateTestAccount inserts an account row directly, bypassing the service layer
func CreateTestAccount(t *testing.T, db *database.DB, userID int64, displayName string, balance int64) *models.Account {
	t.Helper()

	query := `
		INSERT INTO accounts (user_id, display_name, balance)
		VALUES ($1, $2, $3)
		RETURNING user_id, display_name, balance, deposit, debt, debt_limit_reached,
		          last_farm_time, created_at, updated_at
	`

	var account models.Account
	err := db.Pool.QueryRow(context.Background(), query, userID, displayName, balance).Scan(
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
	require.NoError(t, err)

	return &account
}

// SetTestDeposit overwrites an account's deposit directly
func SetTestDeposit(t *testing.T, db *database.DB, userID int64, deposit int64) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		`UPDATE accounts SET deposit = $1 WHERE user_id = $2`, deposit, userID)
	require.NoError(t, err)
}

// SetTestDebt overwrites an account's debt and ceiling flag directly
func SetTestDebt(t *testing.T, db *database.DB, userID int64, debt int64, limitReached bool) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		`UPDATE accounts SET debt = $1, debt_limit_reached = $2 WHERE user_id = $3`,
		debt, limitReached, userID)
	require.NoError(t, err)
}
