package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MemoryDatabaseURL selects the in-process store instead of Postgres.
const MemoryDatabaseURL = "memory"

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Ledger   LedgerConfig   `mapstructure:",squash"`
	Bot      BotConfig      `mapstructure:",squash"`
	Logging  LoggingConfig  `mapstructure:",squash"`
	Health   HealthConfig   `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"REDIS_HOST"`
	Port              string        `mapstructure:"REDIS_PORT"`
	Password          string        `mapstructure:"REDIS_PASSWORD"`
	DB                int           `mapstructure:"REDIS_DB"`
	StatementCacheTTL time.Duration `mapstructure:"STATEMENT_CACHE_TTL"`
}

type LedgerConfig struct {
	ClosingDay      int    `mapstructure:"CLOSING_DAY"`
	Timezone        string `mapstructure:"LEDGER_TIMEZONE"`
	MaxInstallments int    `mapstructure:"MAX_INSTALLMENTS"`
	// ClosingJobSpec is a six-field cron spec; empty means the day after closing at 00:05.
	ClosingJobSpec string `mapstructure:"CLOSING_JOB_SPEC"`
}

type BotConfig struct {
	Token           string `mapstructure:"BOT_TOKEN"`
	AdminID         int64  `mapstructure:"BOT_ADMIN_ID"`
	MessageMaxChars int    `mapstructure:"MESSAGE_MAX_CHARS"`
	PollTimeout     int    `mapstructure:"BOT_POLL_TIMEOUT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_URL":               "",
	"DATABASE_MAX_OPEN_CONNS":    10,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "30m",
	"REDIS_HOST":                 "",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"STATEMENT_CACHE_TTL":        "24h",
	"CLOSING_DAY":                9,
	"LEDGER_TIMEZONE":            "America/Sao_Paulo",
	"MAX_INSTALLMENTS":           60,
	"CLOSING_JOB_SPEC":           "",
	"BOT_TOKEN":                  "",
	"BOT_ADMIN_ID":               0,
	"MESSAGE_MAX_CHARS":          4096,
	"BOT_POLL_TIMEOUT":           60,
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"HEALTH_CHECK_TIMEOUT":       "5s",
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

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

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required (use %q for the in-memory store)", MemoryDatabaseURL)
	}

	if c.Ledger.ClosingDay < 1 || c.Ledger.ClosingDay > 28 {
		return fmt.Errorf("CLOSING_DAY must be between 1 and 28")
	}

	if c.Ledger.MaxInstallments < 1 || c.Ledger.MaxInstallments > 60 {
		return fmt.Errorf("MAX_INSTALLMENTS must be between 1 and 60")
	}

	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("LEDGER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	if c.Bot.MessageMaxChars < 100 || c.Bot.MessageMaxChars > 4096 {
		return fmt.Errorf("MESSAGE_MAX_CHARS must be between 100 and 4096")
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be positive")
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

// UseMemoryStore reports whether the in-process store was requested
func (c *Config) UseMemoryStore() bool {
	return c.Database.URL == MemoryDatabaseURL
}

// RedisEnabled reports whether a statement cache should be wired
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// RedisAddr returns host:port of the redis server
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// Location returns the ledger time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetClosingJobSpec returns the cron spec of the cycle closing job
func (c *Config) GetClosingJobSpec() string {
	if c.Ledger.ClosingJobSpec != "" {
		return c.Ledger.ClosingJobSpec
	}
	return fmt.Sprintf("0 5 0 %d * *", c.Ledger.ClosingDay+1)
}
