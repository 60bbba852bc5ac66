package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

var _ analytics.LedgerReader = (*SQLiteRepository)(nil)

// TransactionDetail is a transaction joined with the names the sheet mirror
// prints, plus its sync bookkeeping.
type TransactionDetail struct {
	core.Transaction
	AccountName  string
	CategoryName string
	Version      int64
	Deleted      bool
	Synced       bool // mirror holds the current version
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = newID()
	t.OccurredAt = t.OccurredAt.UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, category_id, amount_cents, description, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, nullString(t.CategoryID), t.Amount.Cents, t.Description,
		toNanos(t.OccurredAt), toNanos(r.now()))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"account_id", t.AccountID,
		"amount_cents", t.Amount.Cents,
		"occurred_at", t.OccurredAt)
	return t, nil
}

// GetTransaction returns the row even when soft-deleted so the mirror can
// remove it.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (TransactionDetail, error) {
	var (
		d          TransactionDetail
		categoryID sql.NullString
		catName    sql.NullString
		occurred   int64
		deletedAt  sql.NullInt64
		syncStatus string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.account_id, t.category_id, t.amount_cents, t.description, t.occurred_at,
		       t.deleted_at, t.version, t.sync_status, a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = ?`, id).
		Scan(&d.ID, &d.AccountID, &categoryID, &d.Amount.Cents, &d.Description, &occurred,
			&deletedAt, &d.Version, &syncStatus, &d.AccountName, &catName)
	if errors.Is(err, sql.ErrNoRows) {
		return TransactionDetail{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return TransactionDetail{}, fmt.Errorf("get transaction: %w", err)
	}
	d.CategoryID = categoryID.String
	d.CategoryName = catName.String
	d.OccurredAt = fromNanos(occurred)
	d.Deleted = deletedAt.Valid
	d.Synced = syncStatus == "synced"
	return d, nil
}

// ListAccountTransactions returns live transactions in [from, to), newest first.
func (r *SQLiteRepository) ListAccountTransactions(ctx context.Context, accountID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, category_id, amount_cents, description, occurred_at
		FROM transactions
		WHERE account_id = ? AND deleted_at IS NULL AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at DESC, id`,
		accountID, toNanos(from), toNanos(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		var (
			t          core.Transaction
			categoryID sql.NullString
			occurred   int64
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &categoryID, &t.Amount.Cents, &t.Description, &occurred); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CategoryID = categoryID.String
		t.OccurredAt = fromNanos(occurred)
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransaction soft-deletes the row and queues it for mirror removal.
// It returns the new version.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET deleted_at = ?, version = version + 1, sync_status = 'pending'
		WHERE id = ? AND deleted_at IS NULL
		RETURNING version`, toNanos(r.now()), id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrTransactionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "version", version)
	return version, nil
}

// LedgerRevision identifies the state of the account's ledger. Every create
// adds a row and every delete bumps a version, so the value changes after
// any write, whichever process made it.
func (r *SQLiteRepository) LedgerRevision(ctx context.Context, accountID string) (string, error) {
	var rows, versions int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(version), 0) FROM transactions WHERE account_id = ?`,
		accountID).Scan(&rows, &versions)
	if err != nil {
		return "", fmt.Errorf("ledger revision: %w", err)
	}
	return fmt.Sprintf("%d.%d", rows, versions), nil
}

// ListTransactions implements analytics.LedgerReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID string, dr analytics.DateRange) ([]analytics.LedgerEntry, error) {
	query := `SELECT amount_cents, category_id, occurred_at FROM transactions
		WHERE account_id = ? AND deleted_at IS NULL AND occurred_at < ?`
	args := []any{accountID, toNanos(dr.End)}
	if !dr.Start.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, toNanos(dr.Start))
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var out []analytics.LedgerEntry
	for rows.Next() {
		var (
			e          analytics.LedgerEntry
			categoryID sql.NullString
			occurred   int64
		)
		if err := rows.Scan(&e.AmountCents, &categoryID, &occurred); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.CategoryID = categoryID.String
		e.OccurredAt = fromNanos(occurred)
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindCategoryIDByName implements analytics.LedgerReader. The lookup is
// scoped to userID.
func (r *SQLiteRepository) FindCategoryIDByName(ctx context.Context, name, userID string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ? AND user_id = ? LIMIT 1`, name, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find category by name: %w", err)
	}
	return id, true, nil
}

// FindCategoriesByIDs implements analytics.LedgerReader.
func (r *SQLiteRepository) FindCategoriesByIDs(ctx context.Context, ids []string) ([]analytics.CategoryName, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM categories WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer rows.Close()
	var out []analytics.CategoryName
	for rows.Next() {
		var c analytics.CategoryName
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindPlannedBudget implements analytics.LedgerReader.
func (r *SQLiteRepository) FindPlannedBudget(ctx context.Context, accountID string, month time.Month, year int) (int64, bool, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT amount_cents FROM budgets
		WHERE account_id = ? AND category_id = '' AND month = ? AND year = ?`,
		accountID, int(month), year).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find planned budget: %w", err)
	}
	return cents, true, nil
}
