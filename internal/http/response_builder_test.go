package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/goals/1").
		Body(map[string]int{"n": 1}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" || rec.Header().Get("Location") != "/api/goals/1" {
		t.Errorf("headers = %v", rec.Header())
	}
	if rec.Body.String() != "{\"n\":1}\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Body(func() {}).Write(rec)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestResponseFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed", malformed("bad"), http.StatusBadRequest},
		{"validation", invalid(core.ErrEmptyName), http.StatusUnprocessableEntity},
		{"wrapped not found", fmt.Errorf("delete transaction: %w", core.ErrTransactionNotFound), http.StatusNotFound},
		{"account not found", core.ErrAccountNotFound, http.StatusNotFound},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := responseFor(tt.err).statusCode; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(rec, req, "test", errors.New("sqlite: database is locked"))
	if rec.Body.String() != "{\"error\":\"internal error\"}\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWriteErrorLogsServerFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf})

	for _, tt := range []struct {
		err    error
		logged bool
	}{
		{errors.New("sqlite: database is locked"), true},
		{core.ErrGoalNotFound, false},
	} {
		buf.Reset()
		req := httptest.NewRequest(http.MethodDelete, "/api/transactions/t1", nil)
		req = req.WithContext(applog.WithLogger(req.Context(), logger))
		writeError(httptest.NewRecorder(), req, "delete_transaction", tt.err)

		out := buf.String()
		if got := strings.Contains(out, "Request failed"); got != tt.logged {
			t.Fatalf("%v: logged = %v, want %v: %q", tt.err, got, tt.logged, out)
		}
		if tt.logged {
			for _, want := range []string{"operation=delete_transaction", "method=DELETE", "database is locked"} {
				if !strings.Contains(out, want) {
					t.Errorf("log line missing %q: %q", want, out)
				}
			}
		}
	}
}
