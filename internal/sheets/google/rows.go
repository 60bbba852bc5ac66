package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

const dateLayout = "2006-01-02"

// rowValues lays a row out as A:E = date, account, category, description, amount.
func rowValues(r sheets.MirrorRow) []any {
	return []any{
		r.OccurredAt.UTC().Format(dateLayout),
		r.Account,
		r.Category,
		r.TaggedDescription(),
		r.Amount.String(),
	}
}

// parseRow is the inverse of rowValues. Header and foreign rows are skipped.
func parseRow(cols []string) (sheets.MirrorRow, bool) {
	if len(cols) < 5 {
		return sheets.MirrorRow{}, false
	}
	id, ok := sheets.ExtractID(cols[3])
	if !ok {
		return sheets.MirrorRow{}, false
	}
	day, err := time.Parse(dateLayout, cols[0])
	if err != nil {
		return sheets.MirrorRow{}, false
	}
	cents, ok := parseEurosToCents(cols[4])
	if !ok {
		return sheets.MirrorRow{}, false
	}
	desc := strings.TrimSpace(strings.Replace(cols[3], sheets.Marker(id), "", 1))
	return sheets.MirrorRow{
		TransactionID: id,
		OccurredAt:    day,
		Account:       cols[1],
		Category:      cols[2],
		Description:   desc,
		Amount:        core.Money{Cents: cents},
	}, true
}

// findMarkerRow returns the 0-based index of the row whose description
// carries the id marker, or -1.
func findMarkerRow(values [][]any, id string) int {
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 4 {
			continue
		}
		if got, ok := sheets.ExtractID(cols[3]); ok && got == id {
			return i
		}
	}
	return -1
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// parseEurosToCents accepts sheet-formatted amounts such as "-12.30",
// "1.234,50" or "€ 7".
func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		// thousands dots with decimal comma
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")
	cents, err := core.ParseSignedDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}
