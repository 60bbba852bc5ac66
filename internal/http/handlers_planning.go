package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)
	accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))
	if _, err := s.ownedAccount(ctx, user.ID, accountID); err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}
	month, err := ParseMonthParams(r.URL.Query(), s.now().In(s.reports.Location()))
	if err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}
	budgets, err := s.store.ListBudgets(ctx, accountID, month.Month, month.Year)
	if err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}
	NewJSONResponse().Body(mapSlice(budgets, toBudgetJSON)).Write(w)
}

type upsertBudgetRequest struct {
	AccountID string `json:"accountId"`
	// CategoryID empty sets the planned saving for the month.
	CategoryID string     `json:"categoryId"`
	Month      int        `json:"month"`
	Year       int        `json:"year"`
	Amount     MoneyInput `json:"amount"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	var req upsertBudgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "upsert_budget", err)
		return
	}
	if _, err := s.ownedAccount(ctx, user.ID, req.AccountID); err != nil {
		writeError(w, r, "upsert_budget", err)
		return
	}
	if err := s.ownedCategory(ctx, user.ID, req.CategoryID); err != nil {
		writeError(w, r, "upsert_budget", err)
		return
	}

	b := core.Budget{
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Year:       req.Year,
		Amount:     req.Amount.Money(),
	}
	if err := b.Validate(); err != nil {
		writeError(w, r, "upsert_budget", invalid(err))
		return
	}
	b, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		writeError(w, r, "upsert_budget", err)
		return
	}
	s.invalidateAnalytics(ctx, b.AccountID)
	NewJSONResponse().Body(toBudgetJSON(b)).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	goals, err := s.store.ListGoals(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, "list_goals", err)
		return
	}
	NewJSONResponse().Body(mapSlice(goals, toGoalJSON)).Write(w)
}

type createGoalRequest struct {
	Name     string     `json:"name"`
	Target   MoneyInput `json:"target"`
	Saved    MoneyInput `json:"saved"`
	Deadline string     `json:"deadline"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var req createGoalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_goal", err)
		return
	}
	deadline, err := parseOptionalDate(req.Deadline)
	if err != nil {
		writeError(w, r, "create_goal", err)
		return
	}

	g := core.SavingsGoal{
		UserID:   user.ID,
		Name:     sanitizeInput(req.Name),
		Target:   req.Target.Money(),
		Saved:    req.Saved.Money(),
		Deadline: deadline,
	}
	if err := g.Validate(); err != nil {
		writeError(w, r, "create_goal", invalid(err))
		return
	}
	g, err = s.store.CreateGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, "create_goal", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toGoalJSON(g)).Write(w)
}

type contributeRequest struct {
	Amount MoneyInput `json:"amount"`
}

// handleContributeGoal adds to (or, with a negative amount, withdraws
// from) a goal. The saved amount never drops below zero.
func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)
	id := chi.URLParam(r, "id")

	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		writeError(w, r, "contribute_goal", err)
		return
	}
	if g.UserID != user.ID {
		writeError(w, r, "contribute_goal", core.ErrGoalNotFound)
		return
	}

	var req contributeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "contribute_goal", err)
		return
	}
	g, err = s.store.ContributeGoal(ctx, id, req.Amount.Cents)
	if errors.Is(err, core.ErrInvalidAmount) {
		err = invalid(err)
	}
	if err != nil {
		writeError(w, r, "contribute_goal", err)
		return
	}
	NewJSONResponse().Body(toGoalJSON(g)).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	items, err := s.store.ListRecurring(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, "list_recurring", err)
		return
	}
	NewJSONResponse().Body(mapSlice(items, toRecurringJSON)).Write(w)
}

type createRecurringRequest struct {
	AccountID   string     `json:"accountId"`
	CategoryID  string     `json:"categoryId"`
	StartDate   string     `json:"startDate"`
	EndDate     string     `json:"endDate"`
	Every       string     `json:"every"`
	Description string     `json:"description"`
	Amount      MoneyInput `json:"amount"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	var req createRecurringRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	if _, err := s.ownedAccount(ctx, user.ID, req.AccountID); err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	if err := s.ownedCategory(ctx, user.ID, req.CategoryID); err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}

	re := core.RecurringTransaction{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		StartDate:   start,
		EndDate:     end,
		Every:       core.RepetitionTypes(strings.ToLower(strings.TrimSpace(req.Every))),
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount.Money(),
	}
	if err := re.Validate(); err != nil {
		writeError(w, r, "create_recurring", invalid(err))
		return
	}
	re, err = s.store.CreateRecurring(ctx, re)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toRecurringJSON(re)).Write(w)
}

// handleSkipRecurring marks the next occurrence of a template to be
// skipped by the recurring worker.
func (s *Server) handleSkipRecurring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)
	id := chi.URLParam(r, "id")

	re, err := s.store.GetRecurring(ctx, id)
	if err != nil {
		writeError(w, r, "skip_recurring", err)
		return
	}
	if _, err := s.ownedAccount(ctx, user.ID, re.AccountID); err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			err = core.ErrRecurringNotFound
		}
		writeError(w, r, "skip_recurring", err)
		return
	}
	if err := s.store.SetRecurringSkip(ctx, id, true); err != nil {
		writeError(w, r, "skip_recurring", err)
		return
	}
	re.SkipNext = true
	NewJSONResponse().Body(toRecurringJSON(re)).Write(w)
}
