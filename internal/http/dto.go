package http

import (
	"time"

	"fintrack/internal/core"
)

// JSON shapes of the CRUD endpoints. Amounts are major-unit decimal strings.

type accountJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAccountJSON(a core.Account) accountJSON {
	return accountJSON{ID: a.ID, Name: a.Name, Currency: a.Currency, CreatedAt: a.CreatedAt}
}

type categoryJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsIncome bool   `json:"isIncome"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, IsIncome: c.IsIncome}
}

type transactionJSON struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		OccurredAt:  t.OccurredAt,
	}
}

type budgetJSON struct {
	ID            string `json:"id"`
	AccountID     string `json:"accountId"`
	CategoryID    string `json:"categoryId,omitempty"`
	PlannedSaving bool   `json:"plannedSaving"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
	Amount        string `json:"amount"`
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:            b.ID,
		AccountID:     b.AccountID,
		CategoryID:    b.CategoryID,
		PlannedSaving: b.IsPlannedSaving(),
		Month:         b.Month,
		Year:          b.Year,
		Amount:        b.Amount.String(),
	}
}

type goalJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Target   string  `json:"target"`
	Saved    string  `json:"saved"`
	Progress float64 `json:"progress"`
	Deadline string  `json:"deadline,omitempty"`
}

func toGoalJSON(g core.SavingsGoal) goalJSON {
	return goalJSON{
		ID:       g.ID,
		Name:     g.Name,
		Target:   g.Target.String(),
		Saved:    g.Saved.String(),
		Progress: g.Progress(),
		Deadline: formatOptionalDate(g.Deadline),
	}
}

type recurringJSON struct {
	ID            string `json:"id"`
	AccountID     string `json:"accountId"`
	CategoryID    string `json:"categoryId,omitempty"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate,omitempty"`
	Every         string `json:"every"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	LastExecution string `json:"lastExecution,omitempty"`
	SkipNext      bool   `json:"skipNext"`
}

func toRecurringJSON(re core.RecurringTransaction) recurringJSON {
	out := recurringJSON{
		ID:          re.ID,
		AccountID:   re.AccountID,
		CategoryID:  re.CategoryID,
		StartDate:   formatOptionalDate(re.StartDate),
		EndDate:     formatOptionalDate(re.EndDate),
		Every:       string(re.Every),
		Description: re.Description,
		Amount:      re.Amount.String(),
		SkipNext:    re.SkipNext,
	}
	if !re.LastExecution.IsZero() {
		out.LastExecution = re.LastExecution.Format("2006-01-02")
	}
	return out
}

func formatOptionalDate(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

// mapSlice converts a slice, returning an empty (not nil) slice so JSON
// renders [].
func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
