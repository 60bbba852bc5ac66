// Package http provides the JSON API server and its handlers.
//
// This file implements parsing of query parameters and JSON bodies into the
// values handlers pass to storage.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Start returns the first instant of the month in loc.
func (p MonthParams) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
}

// ParseMonthParams reads year and month from the query, defaulting to the
// month of now. Present but invalid values are an error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			return MonthParams{}, malformed(fmt.Sprintf("invalid year %q", v))
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, malformed(fmt.Sprintf("invalid month %q", v))
		}
		params.Month = m
	}
	return params, nil
}

// DecodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return malformed("request body too large")
		case errors.Is(err, io.EOF):
			return malformed("request body is empty")
		default:
			return malformed("invalid JSON body: " + err.Error())
		}
	}
	if dec.More() {
		return malformed("request body must contain a single JSON object")
	}
	return nil
}

// MoneyInput decodes an amount given as a JSON string ("-12.50", "12,50")
// or number into signed cents.
type MoneyInput struct {
	Cents int64
	Set   bool
}

func (m *MoneyInput) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	cents, err := core.ParseSignedDecimalToCents(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	m.Cents, m.Set = cents, true
	return nil
}

func (m MoneyInput) Money() core.Money {
	return core.Money{Cents: m.Cents}
}

// parseDate parses YYYY-MM-DD, or RFC 3339 for a precise instant. A bare
// date is midnight in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, malformed(fmt.Sprintf("invalid date %q: use YYYY-MM-DD or RFC 3339", s))
	}
	return t, nil
}

// parseOptionalDate returns the zero Date for an empty string.
func parseOptionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	t, err := parseDate(s, time.UTC)
	if err != nil {
		return core.Date{}, err
	}
	y, m, d := t.Date()
	return core.NewDate(y, int(m), d), nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
