package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateUser(ctx context.Context, name string) (core.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.User{}, core.ErrEmptyName
	}
	u := core.User{ID: newID(), Name: name, CreatedAt: r.now().UTC()}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Name, toNanos(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.ID = newID()
	a.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, currency, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, strings.ToUpper(a.Currency), toNanos(a.CreatedAt))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.Currency = strings.ToUpper(a.Currency)
	slog.InfoContext(ctx, "Account created", "account_id", a.ID, "user_id", a.UserID)
	return a, nil
}

// FindAccount returns core.ErrAccountNotFound for unknown ids.
func (r *SQLiteRepository) FindAccount(ctx context.Context, id string) (core.Account, error) {
	var (
		a       core.Account
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, currency, created_at FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.CreatedAt = fromNanos(created)
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, currency, created_at FROM accounts WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		var (
			a       core.Account
			created int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &created); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.CreatedAt = fromNanos(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = newID()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, is_income) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, boolToInt(c.IsIncome))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var (
		c        core.Category
		isIncome int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_income FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &isIncome)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.IsIncome = isIncome == 1
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, is_income FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		var (
			c        core.Category
			isIncome int
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &isIncome); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.IsIncome = isIncome == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
