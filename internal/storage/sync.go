package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PendingSyncTransaction represents minimal data needed for sync queue messages
type PendingSyncTransaction struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions not yet mirrored, oldest first.
// Rows in error state are retried.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM transactions
		WHERE sync_status IN ('pending', 'error')
		ORDER BY created_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()
	var out []PendingSyncTransaction
	for rows.Next() {
		var (
			p       PendingSyncTransaction
			created int64
		)
		if err := rows.Scan(&p.ID, &p.Version, &created); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		p.CreatedAt = fromNanos(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as mirrored. A stale version is ignored so a
// later edit or delete still gets synced.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = 'synced', synced_at = ?
		WHERE id = ? AND version = ?`, toNanos(r.now()), id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.WarnContext(ctx, "Stale sync acknowledgement ignored", "id", id, "version", version)
		return nil
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError marks a transaction as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}
