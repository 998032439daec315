package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Economy  EconomyConfig  `mapstructure:"economy"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"` // postgres, memory
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"dbname"`
	SSLMode          string        `mapstructure:"sslmode"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Bounds every round trip; Redis is consulted while an account lock is held.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig configures service-to-service bearer tokens for the collaborator API.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)

	// File, when set, also receives JSON lines with size-based rotation.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// EconomyConfig holds the ledger's business parameters. Monetary values are
// decimal strings in the config file ("100.00") and are read with scale 2.
type EconomyConfig struct {
	InitialBalance            decimal.Decimal            `mapstructure:"initial_balance"`
	MaxTransactionAmount      decimal.Decimal            `mapstructure:"max_transaction_amount"`
	MinTransactionAmount      decimal.Decimal            `mapstructure:"min_transaction_amount"`
	MinPrice                  decimal.Decimal            `mapstructure:"min_price"`
	TransactionFeeRate        decimal.Decimal            `mapstructure:"transaction_fee_rate"`
	MarketTaxRate             decimal.Decimal            `mapstructure:"market_tax_rate"`
	SuspiciousAmountThreshold decimal.Decimal            `mapstructure:"suspicious_amount_threshold"`
	MaxDailyTransactions      int64                      `mapstructure:"max_daily_transactions"`
	EnableTransactionLogs     bool                       `mapstructure:"enable_transaction_logs"`
	AutoCreateAccounts        bool                       `mapstructure:"auto_create_accounts"`
	AsyncWorkers              int                        `mapstructure:"async_workers"` // 0 = unbounded
	DailyResetCron            string                     `mapstructure:"daily_reset_cron"`
	Timezone                  string                     `mapstructure:"timezone"`
	IdempotencyTTL            time.Duration              `mapstructure:"idempotency_ttl"`
	BalanceCacheSize          int64                      `mapstructure:"balance_cache_size"`
	BalanceCacheTTL           time.Duration              `mapstructure:"balance_cache_ttl"`
	DiscountTiers             map[string]decimal.Decimal `mapstructure:"discount_tiers"`
}

// Location resolves the configured timezone used for daily counter boundaries.
func (e EconomyConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// Validate rejects economy settings the ledger cannot operate with.
func (e EconomyConfig) Validate() error {
	nonNegative := map[string]decimal.Decimal{
		"initial_balance":             e.InitialBalance,
		"max_transaction_amount":      e.MaxTransactionAmount,
		"min_transaction_amount":      e.MinTransactionAmount,
		"min_price":                   e.MinPrice,
		"suspicious_amount_threshold": e.SuspiciousAmountThreshold,
	}
	for name, v := range nonNegative {
		if v.IsNegative() {
			return fmt.Errorf("economy.%s must not be negative", name)
		}
	}
	if !e.MaxTransactionAmount.IsPositive() {
		return fmt.Errorf("economy.max_transaction_amount must be positive")
	}
	if e.MinTransactionAmount.GreaterThan(e.MaxTransactionAmount) {
		return fmt.Errorf("economy.min_transaction_amount exceeds max_transaction_amount")
	}
	rates := map[string]decimal.Decimal{
		"transaction_fee_rate": e.TransactionFeeRate,
		"market_tax_rate":      e.MarketTaxRate,
	}
	for name, v := range rates {
		if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("economy.%s must be within [0,1]", name)
		}
	}
	if e.TransactionFeeRate.Add(e.MarketTaxRate).GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("economy.transaction_fee_rate + market_tax_rate must not exceed 1")
	}
	for tier, d := range e.DiscountTiers {
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("economy.discount_tiers.%s must be within [0,1]", tier)
		}
	}
	if e.MaxDailyTransactions < 0 {
		return fmt.Errorf("economy.max_daily_transactions must not be negative")
	}
	if e.BalanceCacheSize < 0 {
		return fmt.Errorf("economy.balance_cache_size must not be negative")
	}
	if e.AsyncWorkers < 0 {
		return fmt.Errorf("economy.async_workers must not be negative")
	}
	if _, err := e.Location(); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LEDGER_.
// Nested keys use underscore: LEDGER_DATABASE_HOST, LEDGER_ECONOMY_MAX_DAILY_TRANSACTIONS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "economy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.statement_timeout", "5s")
	v.SetDefault("database.lock_timeout", "3s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", "250ms")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "economy-ledger")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("economy.initial_balance", "100.00")
	v.SetDefault("economy.max_transaction_amount", "1000000.00")
	v.SetDefault("economy.min_transaction_amount", "0.01")
	v.SetDefault("economy.min_price", "0.01")
	v.SetDefault("economy.transaction_fee_rate", "0.00")
	v.SetDefault("economy.market_tax_rate", "0.05")
	v.SetDefault("economy.suspicious_amount_threshold", "100000.00")
	v.SetDefault("economy.max_daily_transactions", 1000)
	v.SetDefault("economy.enable_transaction_logs", true)
	v.SetDefault("economy.auto_create_accounts", true)
	v.SetDefault("economy.async_workers", 0)
	v.SetDefault("economy.daily_reset_cron", "0 0 * * *")
	v.SetDefault("economy.timezone", "UTC")
	v.SetDefault("economy.idempotency_ttl", "24h")
	v.SetDefault("economy.balance_cache_size", 100000)
	v.SetDefault("economy.balance_cache_ttl", "10m")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: LEDGER_DATABASE_HOST -> database.host
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required: env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decimalHook())); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Economy.Validate(); err != nil {
		return nil, fmt.Errorf("validating economy config: %w", err)
	}

	return &cfg, nil
}
