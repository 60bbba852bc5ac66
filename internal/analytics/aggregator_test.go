package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

type fakeLedger struct {
	mu         sync.Mutex
	accounts   map[string]core.Account
	entries    map[string][]LedgerEntry
	categories map[string]core.Category
	planned    map[string]int64
	listErr    error
	lookups    []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:   map[string]core.Account{"acc": {ID: "acc", UserID: "u1", Name: "Main"}},
		entries:    map[string][]LedgerEntry{},
		categories: map[string]core.Category{},
		planned:    map[string]int64{},
	}
}

func (f *fakeLedger) add(account string, cents int64, category string, at time.Time) {
	f.entries[account] = append(f.entries[account], LedgerEntry{AmountCents: cents, CategoryID: category, OccurredAt: at})
}

func (f *fakeLedger) FindAccount(_ context.Context, id string) (core.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return core.Account{}, core.ErrAccountNotFound
	}
	return acc, nil
}

func (f *fakeLedger) ListTransactions(_ context.Context, accountID string, r DateRange) ([]LedgerEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []LedgerEntry
	for _, e := range f.entries[accountID] {
		if r.Contains(e.OccurredAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindCategoryIDByName(_ context.Context, name, userID string) (string, bool, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, userID)
	f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == name && c.UserID == userID {
			return c.ID, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeLedger) FindCategoriesByIDs(_ context.Context, ids []string) ([]CategoryName, error) {
	var out []CategoryName
	for _, id := range ids {
		if c, ok := f.categories[id]; ok {
			out = append(out, CategoryName{ID: c.ID, Name: c.Name})
		}
	}
	return out, nil
}

func (f *fakeLedger) FindPlannedBudget(_ context.Context, accountID string, month time.Month, year int) (int64, bool, error) {
	v, ok := f.planned[plannedKey(accountID, month, year)]
	return v, ok, nil
}

func plannedKey(accountID string, month time.Month, year int) string {
	return fmt.Sprintf("%s|%d|%d", accountID, month, year)
}

var now = time.Date(2025, 3, 18, 12, 0, 0, 0, time.UTC)

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want [][2]int
	}{
		{"mid year", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), [][2]int{{2025, 4}, {2025, 5}, {2025, 6}}},
		{"january", time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC), [][2]int{{2024, 11}, {2024, 12}, {2025, 1}}},
		{"february", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), [][2]int{{2023, 12}, {2024, 1}, {2024, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthWindow(tt.now, 3, time.UTC)
			if len(got) != 3 {
				t.Fatalf("len = %d", len(got))
			}
			for i, m := range got {
				if m.Year != tt.want[i][0] || int(m.Month) != tt.want[i][1] {
					t.Errorf("window[%d] = %d-%d, want %d-%d", i, m.Year, m.Month, tt.want[i][0], tt.want[i][1])
				}
				if !m.End.Equal(m.Start.AddDate(0, 1, 0)) {
					t.Errorf("window[%d] end %v not one month after %v", i, m.End, m.Start)
				}
			}
		})
	}
}

func TestMonthOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	// 23:30 UTC on Jan 31 is already February in UTC+2
	m := MonthOf(time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC), loc)
	if m.Month != time.February || m.Days() != 28 {
		t.Fatalf("got %v with %d days", m.Month, m.Days())
	}
}

func TestQuarterlyScenario(t *testing.T) {
	f := newFakeLedger()
	start := monthStart(now)
	f.add("acc", 100000, "", start.AddDate(0, 0, -15))
	f.add("acc", -30000, "", start.AddDate(0, 0, -15))
	f.add("acc", 50000, "", start.AddDate(0, 0, 1))
	f.add("acc", -20000, "", start.AddDate(0, 0, 2))

	report, err := NewAggregator(f).Quarterly(context.Background(), "acc", now)
	if err != nil {
		t.Fatalf("Quarterly: %v", err)
	}
	if len(report.Quarters) != 3 {
		t.Fatalf("expected 3 months, got %d", len(report.Quarters))
	}

	cur := report.Quarters[2]
	if cur.Month != 3 || cur.Year != 2025 {
		t.Fatalf("current month = %d-%d", cur.Year, cur.Month)
	}
	if cur.IncomeCents != 50000 || cur.OutcomeCents != 20000 || cur.SavingsCents != 0 {
		t.Errorf("current bucket = %+v", cur)
	}
	if cur.BalanceCents != 100000 {
		t.Errorf("balance = %d, want 100000", cur.BalanceCents)
	}

	prev := report.Quarters[1]
	if prev.IncomeCents != 100000 || prev.OutcomeCents != 30000 || prev.BalanceCents != 70000 {
		t.Errorf("previous bucket = %+v", prev)
	}

	first := report.Quarters[0]
	if first.IncomeCents != 0 || first.OutcomeCents != 0 || first.BalanceCents != 0 {
		t.Errorf("empty month should be zero, got %+v", first)
	}
}

func TestQuarterlyTotalsAndBalanceConsistency(t *testing.T) {
	f := newFakeLedger()
	f.categories["sav"] = core.Category{ID: "sav", UserID: "u1", Name: "Savings"}
	f.categories["food"] = core.Category{ID: "food", UserID: "u1", Name: "Food"}

	// backdated history well before the window
	f.add("acc", 12345, "", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	f.add("acc", -2000, "sav", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))

	amounts := []int64{250000, -1999, -40000, 731, -12, -88800}
	cats := []string{"", "food", "sav", "", "food", ""}
	for mi, m := range MonthWindow(now, 3, time.UTC) {
		for i, a := range amounts {
			f.add("acc", a*int64(mi+1), cats[i], m.Start.Add(time.Duration(i)*36*time.Hour))
		}
	}
	// last instant of February belongs to February only
	f.add("acc", -1, "", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond))

	report, err := NewAggregator(f).Quarterly(context.Background(), "acc", now)
	if err != nil {
		t.Fatalf("Quarterly: %v", err)
	}

	var inc, out, sav int64
	for _, q := range report.Quarters {
		inc += q.IncomeCents
		out += q.OutcomeCents
		sav += q.SavingsCents
		if q.IncomeCents < 0 || q.OutcomeCents < 0 || q.SavingsCents < 0 {
			t.Errorf("negative field in %+v", q)
		}
	}
	if report.Totals != (QuarterTotals{IncomeCents: inc, OutcomeCents: out, SavingsCents: sav}) {
		t.Errorf("totals %+v do not match sum %d/%d/%d", report.Totals, inc, out, sav)
	}

	window := MonthWindow(now, 3, time.UTC)
	for i := 1; i < 3; i++ {
		var delta int64
		for _, e := range f.entries["acc"] {
			if window[i].Range().Contains(e.OccurredAt) {
				delta += e.AmountCents
			}
		}
		if got, want := report.Quarters[i].BalanceCents, report.Quarters[i-1].BalanceCents+delta; got != want {
			t.Errorf("balance[%d] = %d, want previous + delta = %d", i, got, want)
		}
	}

	if report.Quarters[0].SavingsCents != 40000 {
		t.Errorf("savings in first month = %d, want 40000", report.Quarters[0].SavingsCents)
	}
}

func TestQuarterlyUnknownAccount(t *testing.T) {
	_, err := NewAggregator(newFakeLedger()).Quarterly(context.Background(), "missing", now)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestQuarterlyPropagatesReaderError(t *testing.T) {
	f := newFakeLedger()
	f.listErr = errors.New("db down")
	if _, err := NewAggregator(f).Quarterly(context.Background(), "acc", now); err == nil {
		t.Fatal("expected error")
	}
}

func TestSummarySavingsCarveOut(t *testing.T) {
	f := newFakeLedger()
	f.categories["sav"] = core.Category{ID: "sav", UserID: "u1", Name: "Savings"}
	f.categories["food"] = core.Category{ID: "food", UserID: "u1", Name: "Food"}
	start := monthStart(now)
	f.add("acc", 200000, "", start.AddDate(0, 0, 0))
	f.add("acc", -40000, "sav", start.AddDate(0, 0, 4))
	f.add("acc", -15050, "food", start.AddDate(0, 0, 5))
	f.add("acc", -5000, "", start.AddDate(0, 0, 6))
	f.planned[plannedKey("acc", time.March, 2025)] = 50000

	s, err := NewAggregator(f).Summary(context.Background(), "acc", now)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if got := s.MonthlySavingsActual.Decimal().String(); got != "400" {
		t.Errorf("monthlySavingsActual = %s, want 400", got)
	}
	if s.IncomeTotal != 200000 || s.OutcomeTotalExclSavings != 20050 || s.OutcomeTotal != s.OutcomeTotalExclSavings {
		t.Errorf("totals = %+v", s)
	}
	if s.Remaining != 200000-20050-40000 {
		t.Errorf("remaining = %d", s.Remaining)
	}
	if s.PlannedSavings != 50000 {
		t.Errorf("plannedSavings = %d", s.PlannedSavings)
	}

	var sum Amount
	for _, c := range s.OutgoingByCategory {
		if c.ID == "sav" {
			t.Errorf("savings category leaked into breakdown: %+v", c)
		}
		sum += c.Amount
	}
	if sum != s.OutcomeTotalExclSavings {
		t.Errorf("breakdown sum %d != outcome %d", sum, s.OutcomeTotalExclSavings)
	}
	want := []CategoryOutgoing{
		{ID: "food", Name: "Food", Amount: 15050},
		{ID: "uncategorized", Name: "Uncategorized", Amount: 5000},
	}
	if len(s.OutgoingByCategory) != len(want) {
		t.Fatalf("breakdown = %+v", s.OutgoingByCategory)
	}
	for i := range want {
		if s.OutgoingByCategory[i] != want[i] {
			t.Errorf("breakdown[%d] = %+v, want %+v", i, s.OutgoingByCategory[i], want[i])
		}
	}
}

func TestSummaryWithoutSavingsCategory(t *testing.T) {
	f := newFakeLedger()
	// another user's Savings category must not apply to this account
	f.categories["sav"] = core.Category{ID: "sav", UserID: "other", Name: "Savings"}
	start := monthStart(now)
	f.add("acc", -7000, "sav", start.AddDate(0, -1, 0))
	f.add("acc", -40000, "sav", start.AddDate(0, 0, 2))

	s, err := NewAggregator(f).Summary(context.Background(), "acc", now)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.MonthlySavingsActual != 0 || s.OutcomeTotalExclSavings != 40000 {
		t.Errorf("got savings %d outcome %d", s.MonthlySavingsActual, s.OutcomeTotalExclSavings)
	}
	for i, v := range s.Daily.Savings {
		if v != 0 {
			t.Fatalf("savings[%d] = %d, want 0", i, v)
		}
	}
	if s.Daily.Outcome[2] != 40000 {
		t.Errorf("outcome day 3 = %d", s.Daily.Outcome[2])
	}
	if len(f.lookups) == 0 || f.lookups[0] != "u1" {
		t.Errorf("savings lookup not scoped to owner: %v", f.lookups)
	}
}

func TestSummaryDailySeries(t *testing.T) {
	f := newFakeLedger()
	f.categories["sav"] = core.Category{ID: "sav", UserID: "u1", Name: "Savings"}
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	start := monthStart(feb)

	// baseline: only negative savings entries before the month count
	f.add("acc", -30000, "sav", start.AddDate(0, -2, 0))
	f.add("acc", 5000, "sav", start.AddDate(0, -1, 0))
	f.add("acc", -1000, "", start.AddDate(0, -1, 0))

	f.add("acc", 10000, "", start)                            // day 1
	f.add("acc", -25000, "", start.AddDate(0, 0, 1))          // day 2: deficit 15000
	f.add("acc", -10000, "sav", start.AddDate(0, 0, 2))       // day 3
	f.add("acc", -50000, "", start.AddDate(0, 0, 3))          // day 4: deficit 65000
	f.add("acc", 200000, "", start.AddDate(0, 0, 28).Add(-1)) // day 29

	s, err := NewAggregator(f).Summary(context.Background(), "acc", feb)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	d := s.Daily
	if len(d.Labels) != 29 || len(d.Income) != 29 || len(d.Outcome) != 29 || len(d.Savings) != 29 {
		t.Fatalf("series lengths %d/%d/%d/%d", len(d.Labels), len(d.Income), len(d.Outcome), len(d.Savings))
	}
	if d.Labels[0] != "1" || d.Labels[28] != "29" {
		t.Errorf("labels = %v", d.Labels)
	}

	for i := 1; i < 29; i++ {
		if d.Income[i] < d.Income[i-1] || d.Outcome[i] < d.Outcome[i-1] {
			t.Fatalf("series not cumulative at %d", i)
		}
	}
	for i, v := range d.Savings {
		if v < 0 {
			t.Fatalf("savings[%d] negative", i)
		}
	}

	wantSav := map[int]Amount{
		0:  30000, // baseline only
		1:  15000, // 30000 - 15000 deficit
		2:  25000, // 40000 - 15000
		3:  0,     // 40000 - 65000 clamps
		28: 40000, // deficit cleared by income
	}
	for i, want := range wantSav {
		if d.Savings[i] != want {
			t.Errorf("savings[%d] = %d, want %d", i, d.Savings[i], want)
		}
	}
	if d.Income[28] != 210000 || d.Outcome[28] != 75000 {
		t.Errorf("final income %d outcome %d", d.Income[28], d.Outcome[28])
	}
}

func TestSummaryJSONShapeAndIdempotence(t *testing.T) {
	f := newFakeLedger()
	f.categories["sav"] = core.Category{ID: "sav", UserID: "u1", Name: "Savings"}
	f.categories["a"] = core.Category{ID: "a", UserID: "u1", Name: "Alpha"}
	f.categories["b"] = core.Category{ID: "b", UserID: "u1", Name: "Beta"}
	start := monthStart(now)
	f.add("acc", 123456, "", start)
	f.add("acc", -1000, "b", start.AddDate(0, 0, 1))
	f.add("acc", -1000, "a", start.AddDate(0, 0, 1))
	f.add("acc", -40000, "sav", start.AddDate(0, 0, 2))

	agg := NewAggregator(f)
	first, err := agg.Summary(context.Background(), "acc", now)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	for i := 0; i < 5; i++ {
		again, err := agg.Summary(context.Background(), "acc", now)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := json.Marshal(again)
		if !bytes.Equal(a, b) {
			t.Fatalf("output differs between calls:\n%s\n%s", a, b)
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(a, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"incomeTotal", "outcomeTotal", "outcomeTotalExclSavings", "monthlySavingsActual", "remaining", "plannedSavings", "outgoingByCategory", "daily"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if string(raw["incomeTotal"]) != "1234.56" {
		t.Errorf("incomeTotal = %s", raw["incomeTotal"])
	}
	if string(raw["monthlySavingsActual"]) != "400" {
		t.Errorf("monthlySavingsActual = %s", raw["monthlySavingsActual"])
	}
	// equal amounts order by name
	if first.OutgoingByCategory[0].Name != "Alpha" || first.OutgoingByCategory[1].Name != "Beta" {
		t.Errorf("breakdown order = %+v", first.OutgoingByCategory)
	}
}

func TestQuarterlyJSONShape(t *testing.T) {
	report, err := NewAggregator(newFakeLedger()).Quarterly(context.Background(), "acc", now)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(report)
	want := `{"quarters":[` +
		`{"month":1,"year":2025,"incomeCents":0,"outcomeCents":0,"savingsCents":0,"balanceCents":0},` +
		`{"month":2,"year":2025,"incomeCents":0,"outcomeCents":0,"savingsCents":0,"balanceCents":0},` +
		`{"month":3,"year":2025,"incomeCents":0,"outcomeCents":0,"savingsCents":0,"balanceCents":0}],` +
		`"totals":{"incomeCents":0,"outcomeCents":0,"savingsCents":0}}`
	if string(b) != want {
		t.Errorf("json =\n%s\nwant\n%s", b, want)
	}
}

func TestAmountJSON(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{0, "0"},
		{5, "0.05"},
		{-1230, "-12.3"},
		{40000, "400"},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.in)
		if err != nil || string(b) != tt.want {
			t.Errorf("Marshal(%d) = %s, %v; want %s", tt.in, b, err, tt.want)
		}
		var back Amount
		if err := json.Unmarshal(b, &back); err != nil || back != tt.in {
			t.Errorf("Unmarshal(%s) = %d, %v", b, back, err)
		}
	}
}
