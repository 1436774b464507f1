package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int    `env:"FOLIO_PORT" envDefault:"8420"`
	DevMode      bool   `env:"FOLIO_DEV_MODE" envDefault:"false"`
	LogLevel     string `env:"FOLIO_LOG_LEVEL" envDefault:"info"`
	DatabasePath string `env:"FOLIO_DATABASE_PATH" envDefault:"./data/folio.db"`

	Prices    Prices
	Analytics Analytics
}

// Prices configures the market data client and refresh job.
type Prices struct {
	QuoteURL     string `env:"FOLIO_QUOTE_URL" envDefault:"https://query1.finance.yahoo.com/v8/finance/chart"`
	RefreshCron  string `env:"FOLIO_PRICE_REFRESH_CRON" envDefault:"@every 15m"`
	TimeoutSecs  int    `env:"FOLIO_QUOTE_TIMEOUT_SECS" envDefault:"30"`
	SnapshotCron string `env:"FOLIO_SNAPSHOT_CRON" envDefault:"0 0 18 * * *"`
}

// Analytics holds tunables for the calculation engines.
type Analytics struct {
	// DriftEpsilonPct is the tolerance band (in percentage points) below
	// which allocation drift is not actionable.
	DriftEpsilonPct float64 `env:"FOLIO_DRIFT_EPSILON_PCT" envDefault:"0.5"`
	// CashDragThresholdPct is the net-cash share above which a cash_drag
	// recommendation is raised.
	CashDragThresholdPct float64 `env:"FOLIO_CASH_DRAG_THRESHOLD_PCT" envDefault:"10"`
	// RebalanceMaterialityPct is the drift magnitude above which a
	// rebalance recommendation is raised.
	RebalanceMaterialityPct float64 `env:"FOLIO_REBALANCE_MATERIALITY_PCT" envDefault:"5"`
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("FOLIO_DATABASE_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("FOLIO_PORT must be a valid port, got %d", c.Port)
	}
	if c.Analytics.DriftEpsilonPct < 0 {
		return fmt.Errorf("FOLIO_DRIFT_EPSILON_PCT must not be negative")
	}
	return nil
}
