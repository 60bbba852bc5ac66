package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// UserHeader carries the caller identity, resolved against the users table.
const UserHeader = "X-User-ID"

type contextKey string

const userContextKey contextKey = "user"

// authenticate attaches the user named by X-User-ID to the context. A
// missing or unknown user leaves the request unauthenticated.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.store.GetUser(r.Context(), id)
		switch {
		case errors.Is(err, core.ErrUserNotFound):
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Unknown user header", applog.FieldUserID, id)
			next.ServeHTTP(w, r)
			return
		case err != nil:
			writeError(w, r, "authenticate", err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldUserID, user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userFromContext(r.Context()); !ok {
			UnauthorizedError().Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userContextKey).(core.User)
	return u, ok
}

// ownedAccount loads the account and hides accounts of other users behind
// ErrAccountNotFound.
func (s *Server) ownedAccount(ctx context.Context, userID, accountID string) (core.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return core.Account{}, malformed("account id is required")
	}
	acc, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if acc.UserID != userID {
		return core.Account{}, core.ErrAccountNotFound
	}
	return acc, nil
}

// ownedCategory is ownedAccount for categories. An empty id means
// uncategorized and is always allowed.
func (s *Server) ownedCategory(ctx context.Context, userID, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return core.ErrCategoryNotFound
	}
	return nil
}
