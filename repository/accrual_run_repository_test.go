package repository

import (
	"context"
	"testing"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/models"
	"github.com/kyzma-platform/kyzmainvest-bot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccrualRunRepository_CreateAndGetLatest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewAccrualRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("GetLatest returns nil when no runs exist", func(t *testing.T) {
		run, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("Create assigns ID and timestamps", func(t *testing.T) {
		run := &models.AccrualRun{
			RunTime:          time.Now().UTC(),
			TotalDistributed: 123,
			AccountsAffected: 3,
			AccountsSkipped:  1,
			ExecutionSummary: map[string]any{"accounts_checked": float64(4)},
		}

		require.NoError(t, repo.Create(ctx, run))
		assert.NotZero(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())
	})

	t.Run("GetLatest returns most recent run", func(t *testing.T) {
		older := &models.AccrualRun{RunTime: time.Now().UTC().Add(-time.Hour), TotalDistributed: 1}
		newer := &models.AccrualRun{RunTime: time.Now().UTC(), TotalDistributed: 99}
		require.NoError(t, repo.Create(ctx, older))
		require.NoError(t, repo.Create(ctx, newer))

		latest, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, newer.ID, latest.ID)
		assert.Equal(t, int64(99), latest.TotalDistributed)
	})
}
