package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// validationError marks input that parsed but broke a domain rule.
type validationError struct{ err error }

func (e *validationError) Error() string { return e.err.Error() }
func (e *validationError) Unwrap() error { return e.err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &validationError{err: err}
}

// malformedError marks input that could not be parsed at all.
type malformedError struct{ msg string }

func (e *malformedError) Error() string { return e.msg }

func malformed(msg string) error {
	return &malformedError{msg: msg}
}

var notFoundErrors = []error{
	core.ErrAccountNotFound,
	core.ErrCategoryNotFound,
	core.ErrTransactionNotFound,
	core.ErrGoalNotFound,
	core.ErrRecurringNotFound,
	core.ErrUserNotFound,
}

// responseFor maps an error onto the API's status codes.
func responseFor(err error) *JSONResponseBuilder {
	var (
		ve *validationError
		me *malformedError
	)
	switch {
	case errors.As(err, &me):
		return BadRequestError(me.msg)
	case errors.As(err, &ve):
		return UnprocessableEntityError(ve.Error())
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return NotFoundError(target.Error())
		}
	}
	return InternalServerError()
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := responseFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		ctx := r.Context()
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request failed", err,
			applog.ComponentHTTP, op,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")))
	}
	resp.Write(w)
}
