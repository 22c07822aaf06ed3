// Package memory is a process-local implementation of the storage ports,
// used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"expensely/internal/core"
	"expensely/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	nextUser int64
	nextExp  int64
	users    map[int64]core.User
	emails   map[string]int64
	expenses map[int64]core.Expense
	sessions map[string]core.Session
	events   map[string]core.ExpenseEvent
	now      func() time.Time
}

func New() *Store {
	return &Store{
		users:    map[int64]core.User{},
		emails:   map[string]int64{},
		expenses: map[int64]core.Expense{},
		sessions: map[string]core.Session{},
		events:   map[string]core.ExpenseEvent{},
		now:      time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[email]; ok {
		return 0, core.ErrDuplicateEmail
	}
	s.nextUser++
	u := core.User{ID: s.nextUser, Email: email, PasswordHash: passwordHash, CreatedAt: s.now().UTC()}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return u.ID, nil
}

// RemoveUser deletes a user with their expenses and sessions.
func (s *Store) RemoveUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return
	}
	delete(s.users, id)
	delete(s.emails, u.Email)
	for eid, e := range s.expenses {
		if e.UserID == id {
			delete(s.expenses, eid)
		}
	}
	for h, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, h)
		}
	}
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExp++
	e.ID = s.nextExp
	e.CreatedAt = s.now().UTC()
	e.UpdatedAt = e.CreatedAt
	s.expenses[e.ID] = e
	return e.ID, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[e.ID]
	if !ok || cur.UserID != e.UserID {
		return false, nil
	}
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = s.now().UTC()
	s.expenses[e.ID] = e
	return true, nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[id]
	if !ok || cur.UserID != userID {
		return false, nil
	}
	delete(s.expenses, id)
	return true, nil
}

func (s *Store) GetExpense(_ context.Context, userID, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, userID int64) ([]core.Expense, error) {
	return s.owned(userID), nil
}

func (s *Store) EachExpense(_ context.Context, userID int64, fn func(core.Expense) error) error {
	for _, e := range s.owned(userID) {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// owned returns a snapshot of the user's expenses in list order.
func (s *Store) owned(userID int64) []core.Expense {
	s.mu.Lock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) SumByCategory(_ context.Context, userID int64) ([]core.CategoryAmount, error) {
	sums := map[string]int64{}
	var order []string
	for _, e := range s.owned(userID) {
		if _, ok := sums[e.Category]; !ok {
			order = append(order, e.Category)
		}
		sums[e.Category] += e.Amount.Cents
	}
	out := make([]core.CategoryAmount, len(order))
	for i, c := range order {
		out[i] = core.CategoryAmount{Name: c, Amount: core.Money{Cents: sums[c]}}
	}
	return out, nil
}

func (s *Store) SumByMonth(_ context.Context, userID int64, from, to time.Time) ([]core.MonthAmount, error) {
	sums := map[string]int64{}
	for _, e := range s.owned(userID) {
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		sums[e.Date.Format(core.MonthLayout)] += e.Amount.Cents
	}
	out := make([]core.MonthAmount, 0, len(sums))
	for m, c := range sums {
		out = append(out, core.MonthAmount{Month: m, Amount: core.Money{Cents: c}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, tokenHash string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, h)
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordExpenseEvent(_ context.Context, ev core.ExpenseEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; ok {
		return false, nil
	}
	s.events[ev.ID] = ev
	return true, nil
}

func (s *Store) ListExpenseEvents(_ context.Context, userID int64, limit int) ([]core.ExpenseEvent, error) {
	s.mu.Lock()
	var out []core.ExpenseEvent
	for _, ev := range s.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
