package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/observability"
	"github.com/kyzma-platform/kyzmainvest-bot/service"

	log "github.com/sirupsen/logrus"
)

// Scheduler owns the periodic background work: interest accrual and debt
// reminders.
type Scheduler struct {
	interestService service.InterestService
	accountService  service.AccountService
	notifier        service.Notifier
}

// New creates a new scheduler
func New(interestService service.InterestService, accountService service.AccountService, notifier service.Notifier) *Scheduler {
	return &Scheduler{
		interestService: interestService,
		accountService:  accountService,
		notifier:        notifier,
	}
}

// StartInterestWorker starts the hourly interest accrual worker.
// Returns a cleanup function to stop the worker gracefully.
func (s *Scheduler) StartInterestWorker(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	runAccrual := func() {
		run, err := s.interestService.ApplyToAllDeposits(context.Background())
		if err != nil {
			log.Errorf("Error running interest accrual: %v", err)
			observability.AccrualRuns.WithLabelValues("error").Inc()
			return
		}
		observability.AccrualRuns.WithLabelValues("ok").Inc()
		log.WithFields(log.Fields{
			"distributed": run.TotalDistributed,
			"affected":    run.AccountsAffected,
			"skipped":     run.AccountsSkipped,
		}).Info("Interest accrual run complete")
	}

	go func() {
		log.Info("Interest accrual worker started")

		for {
			select {
			case <-ctx.Done():
				log.Info("Interest accrual worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Interest accrual worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				runAccrual()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// StartDebtReminderWorker starts the periodic debt reminder worker.
// Returns a cleanup function to stop the worker gracefully.
func (s *Scheduler) StartDebtReminderWorker(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	remindDebtors := func() {
		debtors, err := s.accountService.Debtors(context.Background())
		if err != nil {
			log.Errorf("Error fetching debtors for reminders: %v", err)
			return
		}

		observability.Debtors.Set(float64(len(debtors)))

		if len(debtors) == 0 {
			return
		}

		var summary []string
		for _, debtor := range debtors {
			s.notifier.Notify(context.Background(), debtor.UserID, fmt.Sprintf(
				"Reminder: you owe %d KyZmaCoin to the bank. Use repay to settle your debt.",
				debtor.Debt))
			summary = append(summary, fmt.Sprintf("%s: %d", debtor.DisplayName, debtor.Debt))
		}

		s.notifier.NotifyOperator(context.Background(), fmt.Sprintf(
			"Debt reminders sent to %d debtors: %s", len(debtors), strings.Join(summary, ", ")))

		log.WithField("debtors", len(debtors)).Info("Debt reminders sent")
	}

	go func() {
		log.Info("Debt reminder worker started")

		// Run immediately on startup
		remindDebtors()

		for {
			select {
			case <-ctx.Done():
				log.Info("Debt reminder worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Debt reminder worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				remindDebtors()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
