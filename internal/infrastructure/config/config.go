package config

import (
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Ledger files
	DataDir            string `env:"DATA_DIR"             envDefault:"data"`
	BalanceFile        string `env:"BALANCE_FILE"         envDefault:"balance.json"`
	TransactionLogFile string `env:"TRANSACTION_LOG_FILE" envDefault:"transaction_log.json"`

	// Currencies
	SupportedCurrencies []string `env:"SUPPORTED_CURRENCIES" envSeparator:"," envDefault:"JPY,USD,EUR"`
	HomeCurrency        string   `env:"HOME_CURRENCY"        envDefault:"JPY"`
	InitialBalance      string   `env:"INITIAL_BALANCE"      envDefault:"1000000"`
	BalanceFloor        string   `env:"BALANCE_FLOOR"        envDefault:"-1000000"`

	// Backups
	BalanceBackups int `env:"BALANCE_BACKUPS" envDefault:"5"`
	LogBackups     int `env:"LOG_BACKUPS"     envDefault:"10"`
	HistoryLimit   int `env:"HISTORY_LIMIT"   envDefault:"100"`

	// Rate source
	RateAPIURL        string        `env:"RATE_API_URL"        envDefault:""`
	RateAPIKey        string        `env:"RATE_API_KEY"        envDefault:""`
	RateCacheTTL      time.Duration `env:"RATE_CACHE_TTL"      envDefault:"5m"`
	RateFallbackTable string        `env:"RATE_FALLBACK_TABLE" envDefault:""`

	// Redis (optional - leave empty to use the in-process rate cache)
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Scheduler
	AdvisorInterval time.Duration `env:"ADVISOR_INTERVAL" envDefault:"1h"`
	AdvisorEnabled  bool          `env:"ADVISOR_ENABLED"  envDefault:"true"`

	// Notifications
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Authentication (optional - leave empty to disable)
	JWTSecret     string        `env:"JWT_SECRET"     envDefault:""`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	AuthEnabled   bool          `env:"AUTH_ENABLED"   envDefault:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// BalancePath returns the balance snapshot path inside the data directory.
func (c *Config) BalancePath() string {
	return filepath.Join(c.DataDir, c.BalanceFile)
}

// TransactionLogPath returns the transaction log path inside the data
// directory.
func (c *Config) TransactionLogPath() string {
	return filepath.Join(c.DataDir, c.TransactionLogFile)
}

// InitialBalanceAmount parses the configured initial balance.
func (c *Config) InitialBalanceAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.InitialBalance)
}

// BalanceFloorAmount parses the configured catastrophic-negative floor.
func (c *Config) BalanceFloorAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.BalanceFloor)
}
