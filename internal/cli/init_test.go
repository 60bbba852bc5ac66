package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"fintrack/internal/storage"
)

func TestBootstrap(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "fintrack.db")
	t.Setenv("FINTRACK_CONFIG", "")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MIRROR_BACKEND", "memory")

	ctx := context.Background()
	app, err := Bootstrap(ctx, "test")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer app.Close()

	if app.Config.SQLiteDBPath != dbPath {
		t.Errorf("SQLiteDBPath = %q", app.Config.SQLiteDBPath)
	}
	if app.Logger.Component() != "test" {
		t.Errorf("component = %q", app.Logger.Component())
	}
	if _, err := app.Store.GetUser(ctx, storage.DefaultUserID); err != nil {
		t.Errorf("default user not seeded: %v", err)
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	t.Setenv("FINTRACK_CONFIG", "")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "x.db"))
	t.Setenv("LOG_LEVEL", "loud")

	if _, err := Bootstrap(context.Background(), "test"); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestIgnoreCanceled(t *testing.T) {
	if err := IgnoreCanceled(fmt.Errorf("consume: %w", context.Canceled)); err != nil {
		t.Errorf("IgnoreCanceled(canceled) = %v", err)
	}
	other := errors.New("boom")
	if err := IgnoreCanceled(other); err != other {
		t.Errorf("IgnoreCanceled(other) = %v", err)
	}
}
