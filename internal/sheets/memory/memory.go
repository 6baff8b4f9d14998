// Package memory is an in-process expense mirror for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"renovo/internal/core"
	"renovo/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows map[int64][]any
}

func New() *Store {
	return &Store{rows: map[int64][]any{}}
}

// Upsert stores the rendered row and returns a synthetic reference.
func (s *Store) Upsert(_ context.Context, e core.Expense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = sheets.Row(e)
	return fmt.Sprintf("mem:%d", e.ID), nil
}

func (s *Store) Remove(_ context.Context, expenseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, expenseID)
	return nil
}

// Row returns the mirrored row for an expense.
func (s *Store) Row(expenseID int64) ([]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[expenseID]
	return r, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
