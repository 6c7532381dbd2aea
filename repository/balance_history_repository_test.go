package repository

import (
	"context"
	"testing"

	"github.com/kyzma-platform/kyzmainvest-bot/models"
	"github.com/kyzma-platform/kyzmainvest-bot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceHistoryRepository_RecordAndGetByUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	testutil.CreateTestAccount(t, testDB.DB, 100, "vasya", 1000)

	first := &models.BalanceHistory{
		UserID:          100,
		BalanceBefore:   1000,
		BalanceAfter:    600,
		ChangeAmount:    -400,
		TransactionType: models.TransactionTypeDeposit,
		TransactionMetadata: map[string]any{
			"deposit_after": float64(400),
		},
	}
	require.NoError(t, repo.Record(ctx, first))
	assert.NotZero(t, first.ID)

	second := &models.BalanceHistory{
		UserID:          100,
		BalanceBefore:   600,
		BalanceAfter:    1100,
		ChangeAmount:    500,
		TransactionType: models.TransactionTypeBorrow,
	}
	require.NoError(t, repo.Record(ctx, second))

	histories, err := repo.GetByUser(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, histories, 2)

	// Newest first
	assert.Equal(t, models.TransactionTypeBorrow, histories[0].TransactionType)
	assert.Equal(t, models.TransactionTypeDeposit, histories[1].TransactionType)
	assert.Equal(t, float64(400), histories[1].TransactionMetadata["deposit_after"])

	limited, err := repo.GetByUser(ctx, 100, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
