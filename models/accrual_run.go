package models

import (
	"time"
)

// AccrualRun represents one firing of the interest accrual scheduler
type AccrualRun struct {
	ID               int64          `db:"id"`
	RunTime          time.Time      `db:"run_time"`
	TotalDistributed int64          `db:"total_distributed"`
	AccountsAffected int            `db:"accounts_affected"`
	AccountsSkipped  int            `db:"accounts_skipped"`
	ExecutionSummary map[string]any `db:"execution_summary"`
	CreatedAt        time.Time      `db:"created_at"`
}
