package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/sheets"
)

// Store is an in-process mirror used for development and tests.
type Store struct {
	mu      sync.Mutex
	rows    []sheets.MirrorRow
	appends int
}

var _ sheets.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference. Appending a
// transaction id that is already present replaces the stored row.
func (s *Store) Append(_ context.Context, row sheets.MirrorRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if i := s.indexOf(row.TransactionID); i >= 0 {
		s.rows[i] = row
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Delete(_ context.Context, row sheets.MirrorRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(row.TransactionID); i >= 0 {
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	return nil
}

func (s *Store) Rows(_ context.Context, year int) ([]sheets.MirrorRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.MirrorRow
	for _, r := range s.rows {
		if r.OccurredAt.Year() == year {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Appends counts Append calls, replacements included.
func (s *Store) Appends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.rows, func(r sheets.MirrorRow) bool { return r.TransactionID == id })
}
