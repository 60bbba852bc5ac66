package storage

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const (
	DefaultUserID    = "default-user"
	DefaultAccountID = "default-account"
)

type seedCategory struct {
	name     string
	isIncome bool
}

var defaultCategories = []seedCategory{
	{"Salary", true},
	{"Other income", true},
	{"Groceries", false},
	{"Rent", false},
	{"Utilities", false},
	{"Transport", false},
	{"Restaurants", false},
	{"Health", false},
	{core.SavingsCategoryName, false},
}

// SeedDefaults creates the default user, account and categories. It is a
// no-op when the default user already exists.
func (r *SQLiteRepository) SeedDefaults(ctx context.Context) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		DefaultUserID, "Default", toNanos(r.now()))
	if err != nil {
		return false, fmt.Errorf("seed user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, currency, created_at) VALUES (?, ?, ?, ?, ?)`,
		DefaultAccountID, DefaultUserID, "Main", "EUR", toNanos(r.now())); err != nil {
		return false, fmt.Errorf("seed account: %w", err)
	}

	for _, c := range defaultCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, user_id, name, is_income) VALUES (?, ?, ?, ?)`,
			newID(), DefaultUserID, c.name, boolToInt(c.isIncome)); err != nil {
			return false, fmt.Errorf("seed category %s: %w", c.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	slog.InfoContext(ctx, "Default data seeded",
		"user_id", DefaultUserID,
		"account_id", DefaultAccountID,
		"categories", len(defaultCategories))
	return true, nil
}
