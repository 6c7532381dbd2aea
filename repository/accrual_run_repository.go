package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kyzma-platform/kyzmainvest-bot/database"
	"github.com/kyzma-platform/kyzmainvest-bot/models"

	"github.com/jackc/pgx/v5"
)

// AccrualRunRepository implements the service.AccrualRunRepository interface
type AccrualRunRepository struct {
	q queryable
}

// NewAccrualRunRepository creates a new accrual run repository
func NewAccrualRunRepository(db *database.DB) *AccrualRunRepository {
	return &AccrualRunRepository{q: db.Pool}
}

// newAccrualRunRepositoryWithTx creates a new accrual run repository with a transaction
func newAccrualRunRepositoryWithTx(tx queryable) *AccrualRunRepository {
	return &AccrualRunRepository{q: tx}
}

// Create records a completed accrual run
func (r *AccrualRunRepository) Create(ctx context.Context, run *models.AccrualRun) error {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO accrual_runs
		(run_time, total_distributed, accounts_affected, accounts_skipped, execution_summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.RunTime,
		run.TotalDistributed,
		run.AccountsAffected,
		run.AccountsSkipped,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create accrual run: %w", err)
	}
	return nil
}

// GetLatest returns the most recent accrual run, or nil if none exist
func (r *AccrualRunRepository) GetLatest(ctx context.Context) (*models.AccrualRun, error) {
	query := `
		SELECT id, run_time, total_distributed, accounts_affected, accounts_skipped,
		       execution_summary, created_at
		FROM accrual_runs
		ORDER BY run_time DESC, id DESC
		LIMIT 1
	`

	var run models.AccrualRun
	var summaryJSON []byte

	err := r.q.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.RunTime,
		&run.TotalDistributed,
		&run.AccountsAffected,
		&run.AccountsSkipped,
		&summaryJSON,
		&run.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest accrual run: %w", err)
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}
	return &run, nil
}
