package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Analytics
	DefaultAccountID    string
	SavingsCategoryName string
	Timezone            string
	CacheTTL            time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror
	MirrorBackend       string
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Workers
	SyncBatchSize     int
	SyncInterval      time.Duration
	RecurringInterval time.Duration

	RateLimitPerMinute int

	LogLevel  string
	LogFormat string
}

// fileConfig mirrors Config for the optional TOML file. Durations are
// strings in Go syntax ("30s", "1h").
type fileConfig struct {
	Port                string `toml:"port"`
	SQLiteDBPath        string `toml:"sqlite_db_path"`
	DefaultAccountID    string `toml:"default_account_id"`
	SavingsCategoryName string `toml:"savings_category_name"`
	Timezone            string `toml:"timezone"`
	CacheTTL            string `toml:"cache_ttl"`

	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`

	Mirror struct {
		Backend       string `toml:"backend"`
		SpreadsheetID string `toml:"spreadsheet_id"`
		SheetName     string `toml:"sheet_name"`
	} `toml:"mirror"`

	Worker struct {
		SyncBatchSize     int    `toml:"sync_batch_size"`
		SyncInterval      string `toml:"sync_interval"`
		RecurringInterval string `toml:"recurring_interval"`
	} `toml:"worker"`

	RateLimitPerMinute int `toml:"rate_limit_per_minute"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func defaults() *Config {
	return &Config{
		Port:                "8081",
		SQLiteDBPath:        "./data/fintrack.db",
		DefaultAccountID:    "default-account",
		SavingsCategoryName: "Savings",
		Timezone:            "UTC",
		CacheTTL:            time.Minute,
		AMQPURL:             "",
		AMQPExchange:        "fintrack",
		AMQPQueue:           "sync_transactions",
		MirrorBackend:       "memory",
		GoogleSheetName:     "Ledger",
		SyncBatchSize:       10,
		SyncInterval:        30 * time.Second,
		RecurringInterval:   time.Hour,
		RateLimitPerMinute:  60,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Load builds the configuration from defaults, the TOML file named by
// FINTRACK_CONFIG (if any) and finally the environment.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("FINTRACK_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.SQLiteDBPath, fc.SQLiteDBPath)
	setString(&c.DefaultAccountID, fc.DefaultAccountID)
	setString(&c.SavingsCategoryName, fc.SavingsCategoryName)
	setString(&c.Timezone, fc.Timezone)
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	setString(&c.MirrorBackend, fc.Mirror.Backend)
	setString(&c.GoogleSpreadsheetID, fc.Mirror.SpreadsheetID)
	setString(&c.GoogleSheetName, fc.Mirror.SheetName)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	if fc.Worker.SyncBatchSize != 0 {
		c.SyncBatchSize = fc.Worker.SyncBatchSize
	}
	if fc.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = fc.RateLimitPerMinute
	}

	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"cache_ttl", fc.CacheTTL, &c.CacheTTL},
		{"worker.sync_interval", fc.Worker.SyncInterval, &c.SyncInterval},
		{"worker.recurring_interval", fc.Worker.RecurringInterval, &c.RecurringInterval},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.DefaultAccountID = getEnv("DEFAULT_ACCOUNT_ID", c.DefaultAccountID)
	c.SavingsCategoryName = getEnv("SAVINGS_CATEGORY_NAME", c.SavingsCategoryName)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.MirrorBackend = getEnv("MIRROR_BACKEND", c.MirrorBackend)
	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)

	c.SyncBatchSize = getEnvInt("SYNC_BATCH_SIZE", c.SyncBatchSize)
	c.SyncInterval = getEnvDuration("SYNC_INTERVAL", c.SyncInterval)
	c.RecurringInterval = getEnvDuration("RECURRING_INTERVAL", c.RecurringInterval)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Location resolves Timezone. Validate reports an unknown zone, so callers
// that validated first can ignore the error.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if strings.TrimSpace(c.SavingsCategoryName) == "" {
		errors = append(errors, "savings category name cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	validBackends := []string{"memory", "sheets"}
	if !slices.Contains(validBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
	}
	if c.MirrorBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets mirror")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
