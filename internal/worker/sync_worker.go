package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// SyncWorker mirrors ledger transactions from SQLite to the spreadsheet.
// Both message types converge on the row's current state: a live row is
// appended, a soft-deleted row is removed.
type SyncWorker struct {
	storage     *storage.SQLiteRepository
	mirror      sheets.Mirror
	batchSize   int
	concurrency int
	inflight    *idLocks

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror sheets.Mirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:     storage,
		mirror:      mirror,
		batchSize:   batchSize,
		concurrency: 4,
		inflight:    newIDLocks(),
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)
	return w.syncByID(ctx, msg.ID)
}

// HandleDeleteMessage processes a single transaction delete message from AMQP
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID, "version", msg.Version)
	return w.syncByID(ctx, msg.ID)
}

// syncByID is serialized per transaction: the message consumer and the
// pending sweep may race on the same id, and the row is reread under the
// lock so the loser sees it already synced.
func (w *SyncWorker) syncByID(ctx context.Context, id string) error {
	unlock := w.inflight.lock(id)
	defer unlock()

	d, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrTransactionNotFound) {
		// nothing to mirror; acking drops the message
		slog.WarnContext(ctx, "Transaction not found, dropping message", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	return w.syncDetail(ctx, d)
}

func (w *SyncWorker) syncDetail(ctx context.Context, d storage.TransactionDetail) error {
	if d.Synced {
		slog.DebugContext(ctx, "Transaction already mirrored", "id", d.ID, "version", d.Version)
		return nil
	}

	row := toMirrorRow(d)
	var err error
	if d.Deleted {
		err = w.mirror.Delete(ctx, row)
	} else {
		var ref string
		ref, err = w.mirror.Append(ctx, row)
		if err == nil {
			slog.InfoContext(ctx, "Successfully synced transaction",
				"id", d.ID,
				"sheets_ref", ref,
				"amount_cents", d.Amount.Cents)
		}
	}
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, d.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", d.ID, "error", markErr)
		}
		return fmt.Errorf("mirror transaction %s: %w", d.ID, err)
	}

	// the mirror is updated; a failed mark means a resync, which the
	// mirror applies in place
	if err := w.storage.MarkSynced(ctx, d.ID, d.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", d.ID, "error", err)
	}
	return nil
}

func toMirrorRow(d storage.TransactionDetail) sheets.MirrorRow {
	category := d.CategoryName
	if category == "" {
		category = "Uncategorized"
	}
	return sheets.MirrorRow{
		TransactionID: d.ID,
		OccurredAt:    d.OccurredAt,
		Account:       d.AccountName,
		Category:      category,
		Description:   d.Description,
		Amount:        d.Amount,
	}
}

// SweepResult counts the outcome of one pending sweep.
type SweepResult struct {
	Total  int
	Synced int
	Failed int
}

// ProcessPending mirrors transactions whose sync is still pending or failed.
// This is the backup path for lost AMQP messages; rows are synced
// concurrently and one failure does not stop the batch.
func (w *SyncWorker) ProcessPending(ctx context.Context, limit int) (SweepResult, error) {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return SweepResult{}, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	var synced, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.syncByID(gctx, p.ID); err != nil {
				slog.ErrorContext(gctx, "Failed to sync transaction", "id", p.ID, "error", err)
				failed.Add(1)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Total: len(pending), Synced: int(synced.Load()), Failed: int(failed.Load())}
	slog.InfoContext(ctx, "Pending sweep completed",
		"total", res.Total,
		"synced", res.Synced,
		"errors", res.Failed)
	return res, ctx.Err()
}

// StartupSyncCheck runs a larger sweep to catch up after worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	res, err := w.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if res.Total == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
	}
	return nil
}

// Start runs the pending sweep every interval until Stop or ctx is done.
func (w *SyncWorker) Start(ctx context.Context, interval time.Duration) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, interval, stopCh, doneCh)

	slog.InfoContext(ctx, "Pending sweep started",
		"interval", interval,
		"batch_size", w.batchSize)
	return nil
}

// Stop signals the sweep loop and waits for the current batch to finish.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Pending sweep stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Pending sweep stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx, w.batchSize); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}

// idLocks hands out one mutex per key, dropped when no caller holds it.
type idLocks struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func newIDLocks() *idLocks {
	return &idLocks{locks: make(map[string]*idLock)}
}

func (l *idLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &idLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
