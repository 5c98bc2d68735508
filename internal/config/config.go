package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/frbb/loan-engine/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Storage   StorageConfig   `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string `mapstructure:"SERVER_PORT"`
	Host         string `mapstructure:"SERVER_HOST"`
	Env          string `mapstructure:"ENV"`
	ReadTimeout  string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout string `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	Host            string `mapstructure:"DATABASE_HOST"`
	Port            string `mapstructure:"DATABASE_PORT"`
	Name            string `mapstructure:"DATABASE_NAME"`
	User            string `mapstructure:"DATABASE_USER"`
	Password        string `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"REDIS_ENABLED"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type StorageConfig struct {
	Driver   string `mapstructure:"STORAGE_DRIVER"`
	CacheTTL string `mapstructure:"CACHE_TTL"`
}

type SchedulerConfig struct {
	AuditCron string `mapstructure:"AUDIT_CRON"`
	Timezone  string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	RatePesos       string `mapstructure:"LOAN_RATE_PESOS"`
	RateDolares     string `mapstructure:"LOAN_RATE_DOLARES"`
	CreditMinScore  int    `mapstructure:"CREDIT_MIN_SCORE"`
	CreditMaxAmount string `mapstructure:"CREDIT_MAX_AMOUNT"`
	MinCustomerAge  int    `mapstructure:"MIN_CUSTOMER_AGE"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_URL":               "",
	"DATABASE_HOST":              "localhost",
	"DATABASE_PORT":              "5432",
	"DATABASE_NAME":              "loan_engine",
	"DATABASE_USER":              "postgres",
	"DATABASE_PASSWORD":          "",
	"DATABASE_SSLMODE":           "disable",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",
	"REDIS_ENABLED":              false,
	"REDIS_HOST":                 "localhost",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"STORAGE_DRIVER":             StorageDriverPostgres,
	"CACHE_TTL":                  "10m",
	"AUDIT_CRON":                 "0 0 2 * * *",
	"SCHEDULER_TIMEZONE":         "America/Argentina/Buenos_Aires",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"LOAN_RATE_PESOS":            "0.70",
	"LOAN_RATE_DOLARES":          "0.10",
	"CREDIT_MIN_SCORE":           300,
	"CREDIT_MAX_AMOUNT":          "0",
	"MIN_CUSTOMER_AGE":           18,
	"HEALTH_CHECK_TIMEOUT":       "5s",
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Try to read from .env files (optional); real environment wins
	for _, path := range []string{".env", "deployments/.env"} {
		_ = godotenv.Load(path)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
			return fmt.Errorf("DATABASE_URL or DATABASE_HOST and DATABASE_NAME are required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}

	// Validate interest rates
	for key, value := range map[string]string{
		"LOAN_RATE_PESOS":   c.Business.RatePesos,
		"LOAN_RATE_DOLARES": c.Business.RateDolares,
	} {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", key, err)
		}
		if rate.IsNegative() {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	maxAmount, err := decimal.NewFromString(c.Business.CreditMaxAmount)
	if err != nil {
		return fmt.Errorf("CREDIT_MAX_AMOUNT must be a valid decimal: %w", err)
	}
	if maxAmount.IsNegative() {
		return fmt.Errorf("CREDIT_MAX_AMOUNT must not be negative")
	}

	if c.Business.CreditMinScore < 0 || c.Business.CreditMinScore > 999 {
		return fmt.Errorf("CREDIT_MIN_SCORE must be between 0 and 999")
	}

	if c.Business.MinCustomerAge <= 0 {
		return fmt.Errorf("MIN_CUSTOMER_AGE must be greater than 0")
	}

	// Validate durations
	for key, value := range map[string]string{
		"SERVER_READ_TIMEOUT":        c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":       c.Server.WriteTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"CACHE_TTL":                  c.Storage.CacheTTL,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	if c.Scheduler.AuditCron == "" {
		return fmt.Errorf("AUDIT_CRON is required")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// DSN returns the Postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// InterestRates returns the nominal annual rate of each supported currency
func (c *Config) InterestRates() map[domain.Currency]decimal.Decimal {
	pesos, _ := decimal.NewFromString(c.Business.RatePesos)
	dolares, _ := decimal.NewFromString(c.Business.RateDolares)
	return map[domain.Currency]decimal.Decimal{
		domain.CurrencyPesos:   pesos,
		domain.CurrencyDolares: dolares,
	}
}

// GetCreditMaxAmount returns the largest amount the credit policy admits (zero means unlimited)
func (c *Config) GetCreditMaxAmount() decimal.Decimal {
	amount, _ := decimal.NewFromString(c.Business.CreditMaxAmount)
	return amount
}

// GetReadTimeout returns the server read timeout as duration
func (c *Config) GetReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

// GetWriteTimeout returns the server write timeout as duration
func (c *Config) GetWriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout)
}

// GetConnMaxLifetime returns the database connection lifetime as duration
func (c *Config) GetConnMaxLifetime() time.Duration {
	return mustDuration(c.Database.ConnMaxLifetime)
}

// GetCacheTTL returns the loan cache TTL as duration
func (c *Config) GetCacheTTL() time.Duration {
	return mustDuration(c.Storage.CacheTTL)
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// GetSchedulerLocation returns the scheduler time zone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisAddr returns host:port of the Redis server
func (r RedisConfig) RedisAddr() string {
	return strings.TrimSpace(r.Host) + ":" + strings.TrimSpace(r.Port)
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
