package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// analyticsCacheKey includes the ledger revision so transactions written by
// other processes, such as the recurring worker, miss the cache.
func analyticsCacheKey(view, accountID string, month time.Time, revision string) string {
	return fmt.Sprintf("%s:%s:%04d-%02d:%s", view, accountID, month.Year(), int(month.Month()), revision)
}

// invalidateAnalytics drops every cached report of the account.
func (s *Server) invalidateAnalytics(ctx context.Context, accountID string) {
	q := s.quarterlyCache.DeletePrefix("quarterly:" + accountID + ":")
	m := s.summaryCache.DeletePrefix("summary:" + accountID + ":")
	if q+m > 0 {
		s.logger.DebugContext(ctx, "Analytics cache invalidated", "account_id", accountID, "entries", q+m)
	}
}

// handleQuarterly serves the trailing three-month rollup of an account the
// caller owns.
func (s *Server) handleQuarterly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)
	accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))

	if _, err := s.ownedAccount(ctx, user.ID, accountID); err != nil {
		writeError(w, r, "quarterly", err)
		return
	}

	now := s.now().In(s.reports.Location())
	revision, err := s.store.LedgerRevision(ctx, accountID)
	if err != nil {
		writeError(w, r, "quarterly", err)
		return
	}
	key := analyticsCacheKey("quarterly", accountID, now, revision)
	if report, ok := s.quarterlyCache.Get(key); ok {
		s.structured.LogReport(ctx, "quarterly", accountID, now.Year(), int(now.Month()), true)
		NewJSONResponse().Body(report).Write(w)
		return
	}

	report, err := s.reports.Quarterly(ctx, accountID, now)
	if err != nil {
		writeError(w, r, "quarterly", err)
		return
	}
	s.quarterlyCache.Set(key, report)
	s.structured.LogReport(ctx, "quarterly", accountID, now.Year(), int(now.Month()), false)
	NewJSONResponse().Body(report).Write(w)
}

// handleSummary serves the single-month detail. Without account_id it
// reports on the configured default account; an explicit account_id must
// belong to the authenticated caller.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))

	if accountID == "" {
		accountID = s.defaultAccountID
	} else {
		user, ok := userFromContext(ctx)
		if !ok {
			UnauthorizedError().Write(w)
			return
		}
		if _, err := s.ownedAccount(ctx, user.ID, accountID); err != nil {
			writeError(w, r, "summary", err)
			return
		}
	}

	now := s.now().In(s.reports.Location())
	revision, err := s.store.LedgerRevision(ctx, accountID)
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	key := analyticsCacheKey("summary", accountID, now, revision)
	if report, ok := s.summaryCache.Get(key); ok {
		s.structured.LogReport(ctx, "summary", accountID, now.Year(), int(now.Month()), true)
		NewJSONResponse().Body(report).Write(w)
		return
	}

	report, err := s.reports.Summary(ctx, accountID, now)
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	s.summaryCache.Set(key, report)
	s.structured.LogReport(ctx, "summary", accountID, now.Year(), int(now.Month()), false)
	NewJSONResponse().Body(report).Write(w)
}
