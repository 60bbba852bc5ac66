package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// UpsertBudget inserts or replaces the budget for (account, category, month).
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (id, account_id, category_id, month, year, amount_cents)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, category_id, year, month)
		DO UPDATE SET amount_cents = excluded.amount_cents
		RETURNING id`,
		newID(), b.AccountID, b.CategoryID, b.Month, b.Year, b.Amount.Cents).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, accountID string, month, year int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, category_id, month, year, amount_cents FROM budgets
		WHERE account_id = ? AND month = ? AND year = ?
		ORDER BY category_id`, accountID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.AccountID, &b.CategoryID, &b.Month, &b.Year, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g.ID = newID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_goals (id, user_id, name, target_cents, saved_cents, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Target.Cents, g.Saved.Cents, formatDate(g.Deadline.Time), toNanos(r.now()))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("insert savings goal: %w", err)
	}
	return g, nil
}

const goalColumns = `id, user_id, name, target_cents, saved_cents, deadline`

func scanGoal(s interface{ Scan(...any) error }) (core.SavingsGoal, error) {
	var (
		g        core.SavingsGoal
		deadline sql.NullString
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Target.Cents, &g.Saved.Cents, &deadline); err != nil {
		return core.SavingsGoal{}, err
	}
	t, err := parseDate(deadline)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.Deadline = core.Date{Time: t}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.SavingsGoal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get savings goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()
	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ContributeGoal adds cents to the saved amount. Negative contributions
// withdraw, but never below zero.
func (r *SQLiteRepository) ContributeGoal(ctx context.Context, id string, cents int64) (core.SavingsGoal, error) {
	if cents == 0 {
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE savings_goals SET saved_cents = saved_cents + ?
		WHERE id = ? AND saved_cents + ? >= 0`, cents, id, cents)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("contribute to savings goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetGoal(ctx, id); err != nil {
			return core.SavingsGoal{}, err
		}
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}
	return r.GetGoal(ctx, id)
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := re.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	re.ID = newID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions
			(id, account_id, category_id, start_date, end_date, repetition_type, description, amount_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.ID, re.AccountID, nullString(re.CategoryID), formatDate(re.StartDate.Time), formatDate(re.EndDate.Time),
		string(re.Every), re.Description, re.Amount.Cents, toNanos(r.now()))
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("insert recurring transaction: %w", err)
	}
	slog.InfoContext(ctx, "Recurring transaction created",
		"id", re.ID, "account_id", re.AccountID, "every", re.Every)
	return re, nil
}

const recurringColumns = `id, account_id, category_id, start_date, end_date, repetition_type,
	description, amount_cents, last_execution_date, skip_next`

func scanRecurring(s interface{ Scan(...any) error }) (core.RecurringTransaction, error) {
	var (
		re                     core.RecurringTransaction
		categoryID, start, end sql.NullString
		every                  string
		lastExec               sql.NullString
		skip                   int
	)
	if err := s.Scan(&re.ID, &re.AccountID, &categoryID, &start, &end, &every,
		&re.Description, &re.Amount.Cents, &lastExec, &skip); err != nil {
		return core.RecurringTransaction{}, err
	}
	re.CategoryID = categoryID.String
	re.Every = core.RepetitionTypes(every)
	re.SkipNext = skip == 1

	st, err := parseDate(start)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	en, err := parseDate(end)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	le, err := parseDate(lastExec)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	re.StartDate = core.Date{Time: st}
	re.EndDate = core.Date{Time: en}
	re.LastExecution = le
	return re, nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id string) (core.RecurringTransaction, error) {
	re, err := scanRecurring(r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.ErrRecurringNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring transaction: %w", err)
	}
	return re, nil
}

// ListRecurring returns the templates of every account owned by userID.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID string) ([]core.RecurringTransaction, error) {
	return r.queryRecurring(ctx, `
		SELECT r.id, r.account_id, r.category_id, r.start_date, r.end_date, r.repetition_type,
		       r.description, r.amount_cents, r.last_execution_date, r.skip_next
		FROM recurring_transactions r
		JOIN accounts a ON a.id = r.account_id
		WHERE a.user_id = ?
		ORDER BY r.start_date, r.id`, userID)
}

// GetActiveRecurring returns templates whose [start, end] range contains asOf.
func (r *SQLiteRepository) GetActiveRecurring(ctx context.Context, asOf time.Time) ([]core.RecurringTransaction, error) {
	day := asOf.UTC().Format(dateLayout)
	return r.queryRecurring(ctx, `
		SELECT `+recurringColumns+` FROM recurring_transactions
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY start_date, id`, day, day)
}

func (r *SQLiteRepository) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()
	var out []core.RecurringTransaction
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

// UpdateRecurringLastExecution records the day a template last ran and
// clears any pending skip.
func (r *SQLiteRepository) UpdateRecurringLastExecution(ctx context.Context, id string, day time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET last_execution_date = ?, skip_next = 0 WHERE id = ?`,
		day.UTC().Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("update last execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRecurringNotFound
	}
	return nil
}

// SetRecurringSkip marks the next occurrence of a template to be skipped.
func (r *SQLiteRepository) SetRecurringSkip(ctx context.Context, id string, skip bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET skip_next = ? WHERE id = ?`, boolToInt(skip), id)
	if err != nil {
		return fmt.Errorf("set skip next: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRecurringNotFound
	}
	return nil
}
