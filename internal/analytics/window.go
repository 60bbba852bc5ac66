package analytics

import "time"

// MonthRef identifies a calendar month and its half-open bounds.
type MonthRef struct {
	Year  int
	Month time.Month
	Start time.Time
	End   time.Time
}

// Range returns [Start, End).
func (m MonthRef) Range() DateRange {
	return DateRange{Start: m.Start, End: m.End}
}

// Days returns the number of days in the month.
func (m MonthRef) Days() int {
	return m.End.AddDate(0, 0, -1).Day()
}

// MonthOf returns the month containing t, with bounds in loc.
func MonthOf(t time.Time, loc *time.Location) MonthRef {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return MonthRef{
		Year:  start.Year(),
		Month: start.Month(),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// MonthWindow returns the n calendar months ending with the month of now,
// oldest first. January with n=3 yields November, December, January.
func MonthWindow(now time.Time, n int, loc *time.Location) []MonthRef {
	if n <= 0 {
		return nil
	}
	current := MonthOf(now, loc)
	out := make([]MonthRef, n)
	for i := 0; i < n; i++ {
		// day 1 never overflows, so AddDate normalizes the year cleanly
		out[i] = MonthOf(current.Start.AddDate(0, -(n-1-i), 0), current.Start.Location())
	}
	return out
}
