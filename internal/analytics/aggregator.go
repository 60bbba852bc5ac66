package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"fintrack/internal/core"

	"golang.org/x/sync/errgroup"
)

const (
	quarterMonths    = 3
	uncategorizedKey = "uncategorized"
	uncategorizedTag = "Uncategorized"
)

// Aggregator computes the quarterly and single-month reports. It holds no
// state between calls.
type Aggregator struct {
	reader      LedgerReader
	loc         *time.Location
	savingsName string
}

type Option func(*Aggregator)

// WithLocation sets the time zone used for month boundaries and day buckets.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithSavingsCategoryName overrides the category name treated as savings.
func WithSavingsCategoryName(name string) Option {
	return func(a *Aggregator) {
		if name != "" {
			a.savingsName = name
		}
	}
}

func NewAggregator(r LedgerReader, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader:      r,
		loc:         time.UTC,
		savingsName: core.SavingsCategoryName,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location returns the zone month boundaries are computed in.
func (a *Aggregator) Location() *time.Location { return a.loc }

// savingsCategory resolves the savings category id for the account owner.
// ok is false when the owner has no such category.
func (a *Aggregator) savingsCategory(ctx context.Context, accountID string) (id string, ok bool, err error) {
	acc, err := a.reader.FindAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return "", false, ErrAccountNotFound
		}
		return "", false, fmt.Errorf("find account: %w", err)
	}
	id, ok, err = a.reader.FindCategoryIDByName(ctx, a.savingsName, acc.UserID)
	if err != nil {
		return "", false, fmt.Errorf("resolve savings category: %w", err)
	}
	return id, ok && id != "", nil
}

// classifier splits ledger entries into income, outcome and savings.
type classifier struct {
	savingsID string
	hasSav    bool
}

type kind int

const (
	kindIncome kind = iota
	kindOutcome
	kindSavings
)

func (c classifier) classify(e LedgerEntry) (kind, int64) {
	if e.AmountCents >= 0 {
		return kindIncome, e.AmountCents
	}
	if c.hasSav && e.CategoryID == c.savingsID {
		return kindSavings, -e.AmountCents
	}
	return kindOutcome, -e.AmountCents
}

// Quarterly returns the trailing three-month rollup ending with the month of now.
func (a *Aggregator) Quarterly(ctx context.Context, accountID string, now time.Time) (QuarterlyReport, error) {
	savID, hasSav, err := a.savingsCategory(ctx, accountID)
	if err != nil {
		return QuarterlyReport{}, err
	}
	cls := classifier{savingsID: savID, hasSav: hasSav}

	window := MonthWindow(now, quarterMonths, a.loc)
	buckets := make([]MonthBucket, len(window))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range window {
		g.Go(func() error {
			b, err := a.monthBucket(gctx, accountID, m, cls)
			if err != nil {
				return fmt.Errorf("month %d-%02d: %w", m.Year, m.Month, err)
			}
			buckets[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return QuarterlyReport{}, err
	}

	report := QuarterlyReport{Quarters: buckets}
	for _, b := range buckets {
		report.Totals.IncomeCents += b.IncomeCents
		report.Totals.OutcomeCents += b.OutcomeCents
		report.Totals.SavingsCents += b.SavingsCents
	}

	slog.DebugContext(ctx, "Quarterly report computed",
		"account_id", accountID,
		"income_cents", report.Totals.IncomeCents,
		"outcome_cents", report.Totals.OutcomeCents,
		"savings_cents", report.Totals.SavingsCents)
	return report, nil
}

func (a *Aggregator) monthBucket(ctx context.Context, accountID string, m MonthRef, cls classifier) (MonthBucket, error) {
	b := MonthBucket{Month: int(m.Month), Year: m.Year}

	entries, err := a.reader.ListTransactions(ctx, accountID, m.Range())
	if err != nil {
		return b, fmt.Errorf("list month transactions: %w", err)
	}
	for _, e := range entries {
		switch k, v := cls.classify(e); k {
		case kindIncome:
			b.IncomeCents += v
		case kindSavings:
			b.SavingsCents += v
		default:
			b.OutcomeCents += v
		}
	}

	// Balance is recomputed from full history so backdated entries count.
	history, err := a.reader.ListTransactions(ctx, accountID, DateRange{End: m.End})
	if err != nil {
		return b, fmt.Errorf("list history: %w", err)
	}
	for _, e := range history {
		b.BalanceCents += e.AmountCents
	}
	return b, nil
}

// Summary returns the single-month detail for the month of now.
func (a *Aggregator) Summary(ctx context.Context, accountID string, now time.Time) (SummaryReport, error) {
	savID, hasSav, err := a.savingsCategory(ctx, accountID)
	if err != nil {
		return SummaryReport{}, err
	}
	cls := classifier{savingsID: savID, hasSav: hasSav}
	month := MonthOf(now, a.loc)

	entries, err := a.reader.ListTransactions(ctx, accountID, month.Range())
	if err != nil {
		return SummaryReport{}, fmt.Errorf("list month transactions: %w", err)
	}

	var income, outcome, savings int64
	byCategory := make(map[string]int64)
	for _, e := range entries {
		k, v := cls.classify(e)
		switch k {
		case kindIncome:
			income += v
		case kindSavings:
			savings += v
		default:
			outcome += v
			key := e.CategoryID
			if key == "" {
				key = uncategorizedKey
			}
			byCategory[key] += v
		}
	}

	outgoing, err := a.categoryBreakdown(ctx, byCategory)
	if err != nil {
		return SummaryReport{}, err
	}

	planned, _, err := a.reader.FindPlannedBudget(ctx, accountID, month.Month, month.Year)
	if err != nil {
		return SummaryReport{}, fmt.Errorf("find planned budget: %w", err)
	}

	var baseline int64
	if hasSav {
		baseline, err = a.baselineSavings(ctx, accountID, month.Start, savID)
		if err != nil {
			return SummaryReport{}, err
		}
	}

	return SummaryReport{
		IncomeTotal:             Amount(income),
		OutcomeTotal:            Amount(outcome),
		OutcomeTotalExclSavings: Amount(outcome),
		MonthlySavingsActual:    Amount(savings),
		Remaining:               Amount(income - outcome - savings),
		PlannedSavings:          Amount(planned),
		OutgoingByCategory:      outgoing,
		Daily:                   a.dailySeries(month, entries, cls, baseline),
	}, nil
}

func (a *Aggregator) categoryBreakdown(ctx context.Context, byCategory map[string]int64) ([]CategoryOutgoing, error) {
	ids := make([]string, 0, len(byCategory))
	for id := range byCategory {
		if id != uncategorizedKey {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		cats, err := a.reader.FindCategoriesByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("find categories: %w", err)
		}
		for _, c := range cats {
			names[c.ID] = c.Name
		}
	}

	out := make([]CategoryOutgoing, 0, len(byCategory))
	for id, cents := range byCategory {
		name := names[id]
		if id == uncategorizedKey {
			name = uncategorizedTag
		}
		out = append(out, CategoryOutgoing{ID: id, Name: name, Amount: Amount(cents)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// baselineSavings sums transfers into savings made before monthStart.
func (a *Aggregator) baselineSavings(ctx context.Context, accountID string, monthStart time.Time, savID string) (int64, error) {
	history, err := a.reader.ListTransactions(ctx, accountID, DateRange{End: monthStart})
	if err != nil {
		return 0, fmt.Errorf("list savings history: %w", err)
	}
	var total int64
	for _, e := range history {
		if e.CategoryID == savID && e.AmountCents < 0 {
			total += -e.AmountCents
		}
	}
	return total, nil
}

type dayBucket struct {
	inc, out, sav int64
}

func (a *Aggregator) dailySeries(month MonthRef, entries []LedgerEntry, cls classifier, baseline int64) DailySeries {
	n := month.Days()
	days := make([]dayBucket, n)
	for _, e := range entries {
		d := e.OccurredAt.In(a.loc).Day() - 1
		if d < 0 || d >= n {
			continue
		}
		switch k, v := cls.classify(e); k {
		case kindIncome:
			days[d].inc += v
		case kindSavings:
			days[d].sav += v
		default:
			days[d].out += v
		}
	}

	series := DailySeries{
		Labels:  make([]string, n),
		Income:  make([]Amount, n),
		Outcome: make([]Amount, n),
		Savings: make([]Amount, n),
	}
	var incRun, outRun int64
	savRun := baseline
	for i, d := range days {
		incRun += d.inc
		outRun += d.out
		savRun += d.sav
		deficit := max(0, outRun-incRun)
		series.Labels[i] = strconv.Itoa(i + 1)
		series.Income[i] = Amount(incRun)
		series.Outcome[i] = Amount(outRun)
		series.Savings[i] = Amount(max(0, savRun-deficit))
	}
	return series
}
