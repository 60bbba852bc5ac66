package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

// SavingsCategoryName is the category name whose outgoing transactions are
// tracked as transfers into the savings pot rather than spending.
const SavingsCategoryName = "Savings"

type (
	RepetitionTypes string

	Date struct {
		time.Time
	}

	// Money is a signed amount in integer cents.
	Money struct {
		Cents int64
	}

	User struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}

	Account struct {
		ID        string
		UserID    string
		Name      string
		Currency  string
		CreatedAt time.Time
	}

	Category struct {
		ID       string
		UserID   string
		Name     string
		IsIncome bool
	}

	// Transaction is a ledger entry. Amount >= 0 is income, < 0 is outgoing.
	Transaction struct {
		ID          string
		AccountID   string
		CategoryID  string // empty when uncategorized
		Amount      Money
		Description string
		OccurredAt  time.Time
	}

	// Budget with an empty CategoryID is the planned saving for the month.
	Budget struct {
		ID         string
		AccountID  string
		CategoryID string
		Month      int
		Year       int
		Amount     Money
	}

	SavingsGoal struct {
		ID       string
		UserID   string
		Name     string
		Target   Money
		Saved    Money
		Deadline Date
	}

	RecurringTransaction struct {
		ID            string
		AccountID     string
		CategoryID    string
		StartDate     Date
		EndDate       Date
		Every         RepetitionTypes
		Description   string
		Amount        Money
		LastExecution time.Time
		SkipNext      bool
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingAccount   = errors.New("missing account")
	ErrMissingUser      = errors.New("missing user")

	ErrAccountNotFound     = errors.New("account not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGoalNotFound        = errors.New("savings goal not found")
	ErrRecurringNotFound   = errors.New("recurring transaction not found")
	ErrUserNotFound        = errors.New("user not found")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Validate rejects zero amounts; a ledger entry always moves money.
func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsIncome reports whether the amount is an incoming movement.
func (m Money) IsIncome() bool {
	return m.Cents >= 0
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if a.Currency != "" && len(a.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

// IsSavings reports whether the category is the savings carve-out.
func (c Category) IsSavings() bool {
	return c.Name == SavingsCategoryName
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if t.OccurredAt.IsZero() {
		return errors.New("occurred_at cannot be zero")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return t.Amount.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.AccountID) == "" {
		return ErrMissingAccount
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1970 || b.Year > 9999 {
		return errors.New("invalid year")
	}
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsPlannedSaving reports whether the budget row is a planned savings target.
func (b Budget) IsPlannedSaving() bool {
	return b.CategoryID == ""
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidAmount
	}
	if g.Saved.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress returns the saved share of the target in [0, 1].
func (g SavingsGoal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := float64(g.Saved.Cents) / float64(g.Target.Cents)
	if p > 1 {
		return 1
	}
	return p
}

func (re RecurringTransaction) Validate() error {
	if strings.TrimSpace(re.AccountID) == "" {
		return ErrMissingAccount
	}

	if err := re.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}
		if re.EndDate.Before(re.StartDate.Time) {
			return errors.New("end date must be after start date")
		}
	}

	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return errors.New("invalid repetition type")
	}

	if len(strings.TrimSpace(re.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(re.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}

	return re.Amount.Validate()
}

// ActiveOn reports whether the template should run on the given day.
func (re RecurringTransaction) ActiveOn(now time.Time) bool {
	if now.Before(re.StartDate.Time) {
		return false
	}
	if !re.EndDate.IsZero() && !now.Before(re.EndDate.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
