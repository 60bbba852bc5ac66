package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

type RecurringStore interface {
	GetActiveRecurring(ctx context.Context, asOf time.Time) ([]core.RecurringTransaction, error)
	UpdateRecurringLastExecution(ctx context.Context, id string, day time.Time) error
}

// TransactionCreator is satisfied by TransactionService, so materialized
// transactions are announced to the mirror like any other write.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
}

// RecurringProcessor creates ledger transactions from due recurring templates.
type RecurringProcessor struct {
	store   RecurringStore
	creator TransactionCreator
}

func NewRecurringProcessor(store RecurringStore, creator TransactionCreator) *RecurringProcessor {
	return &RecurringProcessor{store: store, creator: creator}
}

// ProcessResult summarizes one processing run.
type ProcessResult struct {
	Checked int
	Created int
	Skipped int
	Failed  int
}

// ProcessDue materializes every template due at now. A template flagged
// skip-next consumes its occurrence without creating a transaction. Per
// template failures are logged and counted, not returned.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (ProcessResult, error) {
	if p.store == nil || p.creator == nil {
		return ProcessResult{}, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.GetActiveRecurring(ctx, now)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to get active recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"))

	res := ProcessResult{Checked: len(templates)}
	for _, re := range templates {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		checker, err := GetDuenessChecker(re.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Unsupported recurring frequency", "id", re.ID, "error", err)
			res.Failed++
			continue
		}
		if !checker.IsDue(re.LastExecution, now, re.StartDate) {
			continue
		}

		if re.SkipNext {
			if err := p.store.UpdateRecurringLastExecution(ctx, re.ID, now); err != nil {
				slog.ErrorContext(ctx, "Failed to consume skipped occurrence", "id", re.ID, "error", err)
				res.Failed++
				continue
			}
			res.Skipped++
			slog.InfoContext(ctx, "Skipped recurring occurrence", "recurring_id", re.ID)
			continue
		}

		created, err := p.creator.CreateTransaction(ctx, core.Transaction{
			AccountID:   re.AccountID,
			CategoryID:  re.CategoryID,
			Amount:      re.Amount,
			Description: re.Description,
			OccurredAt:  now,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"recurring_id", re.ID,
				"description", re.Description,
				"error", err)
			res.Failed++
			continue
		}

		// the transaction exists, so a failed update is only logged
		if err := p.store.UpdateRecurringLastExecution(ctx, re.ID, now); err != nil {
			slog.ErrorContext(ctx, "Failed to update last execution date",
				"recurring_id", re.ID,
				"error", err)
		}

		res.Created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"recurring_id", re.ID,
			"transaction_id", created.ID,
			"amount_cents", re.Amount.Cents,
			"frequency", re.Every)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", res.Created,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"total_checked", res.Checked)
	return res, nil
}
