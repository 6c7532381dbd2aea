package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/config"
	"github.com/kyzma-platform/kyzmainvest-bot/database"
	"github.com/kyzma-platform/kyzmainvest-bot/events"
	"github.com/kyzma-platform/kyzmainvest-bot/notifier"
	"github.com/kyzma-platform/kyzmainvest-bot/observability"
	"github.com/kyzma-platform/kyzmainvest-bot/repository"
	"github.com/kyzma-platform/kyzmainvest-bot/scheduler"
	"github.com/kyzma-platform/kyzmainvest-bot/service"
)

// Services bundles the application services. A chat transport plugs in here.
type Services struct {
	Account  service.AccountService
	Ledger   service.LedgerService
	Interest service.InterestService
	Games    service.GamesService
}

// BuildServices wires the service layer onto a database connection
func BuildServices(db *database.DB, eventBus *events.Bus, cfg *config.Config) (*Services, service.Notifier) {
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	logNotifier := notifier.NewLogNotifier(cfg.OperatorID)

	return &Services{
		Account:  service.NewAccountService(uowFactory, cfg.OperatorID, cfg.StartingBalance),
		Ledger:   service.NewLedgerService(uowFactory, logNotifier, cfg.DebtCeiling, cfg.TaxRate, cfg.TreasuryID),
		Interest: service.NewInterestService(uowFactory, logNotifier, cfg.AnnualInterestRate),
		Games:    service.NewGamesService(uowFactory, cfg.FarmCooldown, cfg.TaxRate, cfg.TreasuryID),
	}, logNotifier
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting kyzmainvest bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()
	log.Println("Event bus initialized successfully")

	// Initialize services
	log.Println("Initializing services...")
	services, logNotifier := BuildServices(db, eventBus, cfg)
	log.Println("Services initialized successfully")

	// Ensure the treasury account exists before anything routes tax into it
	if _, err := services.Account.GetOrCreateAccount(ctx, cfg.TreasuryID, "treasury"); err != nil {
		return fmt.Errorf("failed to ensure treasury account: %w", err)
	}

	// Start metrics listener
	log.Printf("Starting metrics listener on %s...", cfg.MetricsAddr)
	observability.InitMetrics(cfg.MetricsAddr)

	// Start background workers
	log.Println("Starting background workers...")
	sched := scheduler.New(services.Interest, services.Account, logNotifier)
	stopInterest := sched.StartInterestWorker(ctx, cfg.InterestInterval)
	stopReminders := sched.StartDebtReminderWorker(ctx, cfg.DebtReminderInterval)
	log.Println("Background workers started successfully")

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	stopInterest()
	stopReminders()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
