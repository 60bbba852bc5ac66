// Package analytics derives monthly reports from an account ledger.
//
// The Aggregator reads through a LedgerReader and never writes. All
// accumulation happens in integer cents; major units appear only in the
// JSON output of SummaryReport.
package analytics

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// ErrAccountNotFound is returned when the requested account does not exist.
var ErrAccountNotFound = core.ErrAccountNotFound

// DateRange is the half-open interval [Start, End). A zero Start leaves the
// range unbounded on the left.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	return t.Before(r.End)
}

// LedgerEntry is the projection of a transaction the aggregator reads.
type LedgerEntry struct {
	AmountCents int64
	CategoryID  string // empty when uncategorized
	OccurredAt  time.Time
}

// CategoryName resolves a category id for the outgoing breakdown.
type CategoryName struct {
	ID   string
	Name string
}

// LedgerReader is the read-only store the aggregator queries.
type LedgerReader interface {
	// FindAccount returns core.ErrAccountNotFound for unknown ids.
	FindAccount(ctx context.Context, accountID string) (core.Account, error)
	ListTransactions(ctx context.Context, accountID string, r DateRange) ([]LedgerEntry, error)
	FindCategoryIDByName(ctx context.Context, name, userID string) (string, bool, error)
	FindCategoriesByIDs(ctx context.Context, ids []string) ([]CategoryName, error)
	FindPlannedBudget(ctx context.Context, accountID string, month time.Month, year int) (int64, bool, error)
}

// Amount is a cents value that marshals to JSON in major units.
type Amount int64

// Decimal returns the value in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// MarshalJSON writes a bare JSON number, e.g. 12.5 for 1250 cents.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return errors.New("amount has more than two decimals")
	}
	*a = Amount(cents.IntPart())
	return nil
}

// MonthBucket is one month of the quarterly view.
type MonthBucket struct {
	Month        int   `json:"month"`
	Year         int   `json:"year"`
	IncomeCents  int64 `json:"incomeCents"`
	OutcomeCents int64 `json:"outcomeCents"`
	SavingsCents int64 `json:"savingsCents"`
	BalanceCents int64 `json:"balanceCents"`
}

// QuarterTotals sums the flows of the three months. Balance is not summed.
type QuarterTotals struct {
	IncomeCents  int64 `json:"incomeCents"`
	OutcomeCents int64 `json:"outcomeCents"`
	SavingsCents int64 `json:"savingsCents"`
}

// QuarterlyReport is the trailing three-month view, oldest month first.
type QuarterlyReport struct {
	Quarters []MonthBucket `json:"quarters"`
	Totals   QuarterTotals `json:"totals"`
}

// CategoryOutgoing is one row of the monthly outgoing breakdown.
type CategoryOutgoing struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
}

// DailySeries holds cumulative values, one per calendar day.
type DailySeries struct {
	Labels  []string `json:"labels"`
	Income  []Amount `json:"income"`
	Outcome []Amount `json:"outcome"`
	Savings []Amount `json:"savings"`
}

// SummaryReport is the single-month view.
type SummaryReport struct {
	IncomeTotal             Amount             `json:"incomeTotal"`
	OutcomeTotal            Amount             `json:"outcomeTotal"`
	OutcomeTotalExclSavings Amount             `json:"outcomeTotalExclSavings"`
	MonthlySavingsActual    Amount             `json:"monthlySavingsActual"`
	Remaining               Amount             `json:"remaining"`
	PlannedSavings          Amount             `json:"plannedSavings"`
	OutgoingByCategory      []CategoryOutgoing `json:"outgoingByCategory"`
	Daily                   DailySeries        `json:"daily"`
}
