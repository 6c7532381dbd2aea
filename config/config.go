package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Operator and treasury identities
	OperatorID int64 // receives scheduler and reconciliation alerts
	TreasuryID int64 // account credited by tax skims

	// Ledger configuration
	StartingBalance int64
	DebtCeiling     int64
	TaxRate         float64

	// Interest accrual configuration
	AnnualInterestRate float64
	InterestInterval   time.Duration

	// Debt reminder configuration
	DebtReminderInterval time.Duration

	// Minigame configuration
	FarmCooldown time.Duration

	// Metrics endpoint
	MetricsAddr string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Best effort; real environment variables take precedence
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Ledger settings with defaults
		StartingBalance: 0,
		DebtCeiling:     1_000_000,
		TaxRate:         0.4,

		// Scheduler settings with defaults
		AnnualInterestRate:   0.05,
		InterestInterval:     time.Hour,
		DebtReminderInterval: 12 * time.Hour,

		FarmCooldown: time.Hour,

		MetricsAddr: ":9090",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("OPERATOR_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.OperatorID = id
		}
	}
	if v := os.Getenv("TREASURY_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.TreasuryID = id
		}
	}
	if v := os.Getenv("STARTING_BALANCE"); v != "" {
		if balance, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.StartingBalance = balance
		}
	}
	if v := os.Getenv("DEBT_CEILING"); v != "" {
		if ceiling, err := strconv.ParseInt(v, 10, 64); err == nil && ceiling > 0 {
			config.DebtCeiling = ceiling
		}
	}
	if v := os.Getenv("TAX_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate >= 0 && rate < 1 {
			config.TaxRate = rate
		}
	}
	if v := os.Getenv("ANNUAL_INTEREST_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate >= 0 {
			config.AnnualInterestRate = rate
		}
	}
	if v := os.Getenv("INTEREST_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil && interval > 0 {
			config.InterestInterval = interval
		}
	}
	if v := os.Getenv("DEBT_REMINDER_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil && interval > 0 {
			config.DebtReminderInterval = interval
		}
	}
	if v := os.Getenv("FARM_COOLDOWN"); v != "" {
		if cooldown, err := time.ParseDuration(v); err == nil && cooldown > 0 {
			config.FarmCooldown = cooldown
		}
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		config.MetricsAddr = v
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.OperatorID == 0 {
			return nil, fmt.Errorf("OPERATOR_ID is required")
		}
		if config.TreasuryID == 0 {
			return nil, fmt.Errorf("TREASURY_ID is required")
		}
	}

	return config, nil
}
