package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err != nil {
		t.Fatalf("expected ok for outgoing amount, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneySign(t *testing.T) {
	if !(Money{Cents: 0}).IsIncome() {
		t.Fatalf("zero counts as income")
	}
	if (Money{Cents: -5}).IsIncome() {
		t.Fatalf("negative is outgoing")
	}
	if got := (Money{Cents: -500}).Abs().Cents; got != 500 {
		t.Fatalf("abs = %d", got)
	}
}

func TestTransactionValidate(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	good := Transaction{AccountID: "acc", Amount: Money{Cents: -100}, OccurredAt: at}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{AccountID: "", Amount: Money{Cents: 1}, OccurredAt: at},
		{AccountID: "acc", Amount: Money{Cents: 0}, OccurredAt: at},
		{AccountID: "acc", Amount: Money{Cents: 1}},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{AccountID: "acc", Month: 2, Year: 2025, Amount: Money{Cents: 5000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !good.IsPlannedSaving() {
		t.Fatalf("budget without category is a planned saving")
	}
	if err := (Budget{AccountID: "acc", Month: 13, Year: 2025}).Validate(); err != ErrInvalidMonth {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if err := (Budget{AccountID: "acc", Month: 1, Year: 2025, Amount: Money{Cents: -1}}).Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSavingsGoalProgress(t *testing.T) {
	g := SavingsGoal{UserID: "u", Name: "Trip", Target: Money{Cents: 1000}, Saved: Money{Cents: 250}}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if p := g.Progress(); p != 0.25 {
		t.Fatalf("progress = %v", p)
	}
	g.Saved = Money{Cents: 5000}
	if p := g.Progress(); p != 1 {
		t.Fatalf("progress should cap at 1, got %v", p)
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	good := RecurringTransaction{
		AccountID:   "acc",
		StartDate:   NewDate(2025, 1, 1),
		Every:       Monthly,
		Description: "Rent",
		Amount:      Money{Cents: -90000},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Every = "hourly"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for repetition type")
	}

	bad = good
	bad.EndDate = NewDate(2024, 12, 1)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for end before start")
	}
}

func TestRecurringTransactionActiveOn(t *testing.T) {
	re := RecurringTransaction{StartDate: NewDate(2025, 1, 10), EndDate: NewDate(2025, 3, 10)}
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before start", time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC), false},
		{"on start", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"on end day", time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC), true},
		{"after end", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := re.ActiveOn(tt.now); got != tt.want {
				t.Errorf("ActiveOn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankCategoriesByName(t *testing.T) {
	cats := []Category{
		{ID: "1", Name: "Groceries"},
		{ID: "2", Name: "Savings"},
		{ID: "3", Name: "Restaurants"},
		{ID: "4", Name: "Salary"},
	}

	got := RankCategoriesByName("savngs", cats)
	if len(got) == 0 || got[0].Name != "Savings" {
		t.Fatalf("expected Savings first, got %+v", got)
	}

	got = RankCategoriesByName("rest", cats)
	if len(got) != 1 || got[0].Name != "Restaurants" {
		t.Fatalf("expected substring match only, got %+v", got)
	}

	got = RankCategoriesByName("", cats)
	if len(got) != 4 || got[0].Name != "Groceries" || got[3].Name != "Savings" {
		t.Fatalf("expected name order, got %+v", got)
	}
}
