package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	accounts, err := s.store.ListAccounts(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, "list_accounts", err)
		return
	}
	NewJSONResponse().Body(mapSlice(accounts, toAccountJSON)).Write(w)
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var req createAccountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_account", err)
		return
	}

	acc := core.Account{UserID: user.ID, Name: sanitizeInput(req.Name), Currency: strings.TrimSpace(req.Currency)}
	if err := acc.Validate(); err != nil {
		writeError(w, r, "create_account", invalid(err))
		return
	}
	acc, err := s.store.CreateAccount(r.Context(), acc)
	if err != nil {
		writeError(w, r, "create_account", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toAccountJSON(acc)).Write(w)
}

// handleListCategories lists the caller's categories; ?q= ranks them by
// fuzzy name match instead.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	cats, err := s.store.ListCategories(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, "list_categories", err)
		return
	}
	if q := sanitizeInput(r.URL.Query().Get("q")); q != "" {
		cats = core.RankCategoriesByName(q, cats)
	}
	NewJSONResponse().Body(mapSlice(cats, toCategoryJSON)).Write(w)
}

type createCategoryRequest struct {
	Name     string `json:"name"`
	IsIncome bool   `json:"isIncome"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var req createCategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_category", err)
		return
	}

	c := core.Category{UserID: user.ID, Name: sanitizeInput(req.Name), IsIncome: req.IsIncome}
	if err := c.Validate(); err != nil {
		writeError(w, r, "create_category", invalid(err))
		return
	}
	c, err := s.store.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, "create_category", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toCategoryJSON(c)).Write(w)
}

// handleListTransactions lists one month of an account, newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)
	accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))
	if _, err := s.ownedAccount(ctx, user.ID, accountID); err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}

	loc := s.reports.Location()
	month, err := ParseMonthParams(r.URL.Query(), s.now().In(loc))
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	start := month.Start(loc)
	txs, err := s.store.ListAccountTransactions(ctx, accountID, start, start.AddDate(0, 1, 0))
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	NewJSONResponse().Body(mapSlice(txs, toTransactionJSON)).Write(w)
}

type createTransactionRequest struct {
	AccountID   string     `json:"accountId"`
	CategoryID  string     `json:"categoryId"`
	Amount      MoneyInput `json:"amount"`
	Description string     `json:"description"`
	OccurredAt  string     `json:"occurredAt"`
}

// handleCreateTransaction records a ledger entry. A negative amount is an
// outgoing movement. occurredAt defaults to now.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	var req createTransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	if _, err := s.ownedAccount(ctx, user.ID, req.AccountID); err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	if err := s.ownedCategory(ctx, user.ID, req.CategoryID); err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}

	occurred := s.now()
	if strings.TrimSpace(req.OccurredAt) != "" {
		t, err := parseDate(req.OccurredAt, s.reports.Location())
		if err != nil {
			writeError(w, r, "create_transaction", err)
			return
		}
		occurred = t
	}

	t := core.Transaction{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount.Money(),
		Description: sanitizeInput(req.Description),
		OccurredAt:  occurred,
	}
	if err := t.Validate(); err != nil {
		writeError(w, r, "create_transaction", invalid(err))
		return
	}

	saved, err := s.ledger.CreateTransaction(ctx, t)
	if err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	s.invalidateAnalytics(ctx, saved.AccountID)

	fields := applog.NewFields().
		WithTransaction(saved.ID, saved.AccountID, saved.CategoryID, saved.Amount.Cents).
		WithOperation("create_transaction")
	applog.FromContext(ctx).WithComponent(applog.ComponentLedger).InfoContext(ctx, "Transaction created", fields.ToSlice()...)

	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionJSON(saved)).Write(w)
}

// handleDeleteTransaction soft-deletes a transaction of an account the
// caller owns.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)
	id := chi.URLParam(r, "id")

	d, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	if d.Deleted {
		writeError(w, r, "delete_transaction", core.ErrTransactionNotFound)
		return
	}
	if _, err := s.ownedAccount(ctx, user.ID, d.AccountID); err != nil {
		// someone else's transaction does not exist for this caller
		if errors.Is(err, core.ErrAccountNotFound) {
			err = core.ErrTransactionNotFound
		}
		writeError(w, r, "delete_transaction", err)
		return
	}

	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	s.invalidateAnalytics(ctx, d.AccountID)

	applog.FromContext(ctx).WithComponent(applog.ComponentLedger).InfoContext(ctx, "Transaction deleted",
		applog.FieldTransaction, id,
		applog.FieldAccountID, d.AccountID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
