// Package cli holds the bootstrap shared by cmd/fintrack,
// cmd/fintrack-worker and cmd/recurring-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// App is what every binary needs before doing its own work.
type App struct {
	Config *config.Config
	Logger *applog.Logger
	Store  *storage.SQLiteRepository
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL/LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger, nil
}

// OpenStore opens the SQLite database, applying migrations, and seeds the
// default user, account and categories on first run.
func OpenStore(ctx context.Context, logger *applog.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	seeded, err := repo.SeedDefaults(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}
	logger.WithComponent(applog.ComponentStorage).InfoContext(ctx, "SQLite ready",
		"path", dbPath, "seeded", seeded)
	return repo, nil
}

// Bootstrap runs the whole sequence: .env, config, logger, store.
func Bootstrap(ctx context.Context, component string) (*App, error) {
	LoadEnvFile()

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogger(cfg, component)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, logger, cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Logger: logger, Store: store}, nil
}

func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// IgnoreCanceled maps the shutdown cancellation to a clean exit.
func IgnoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
