package memory

import (
	"context"
	"fmt"
	"sync"

	"expensely/internal/core"
	ports "expensely/internal/sheets"
)

// Store keeps activity rows in memory. Used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu   sync.Mutex
	rows [][]any
	seen map[string]int
}

var _ ports.ActivityWriter = (*Store)(nil)

func New() *Store {
	return &Store{seen: map[string]int{}}
}

// AppendActivity stores the row and returns a synthetic reference. Appending
// the same event twice returns the original reference.
func (s *Store) AppendActivity(_ context.Context, ev core.ExpenseEvent) (string, error) {
	if ev.ID == "" {
		return "", fmt.Errorf("event id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.seen[ev.ID]; ok {
		return fmt.Sprintf("mem:%d", n), nil
	}
	s.rows = append(s.rows, ports.ActivityRow(ev))
	s.seen[ev.ID] = len(s.rows)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the appended rows in order.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
