package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensely/internal/core"
)

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.CreateUser(ctx, "a@x.io", "h")
	if err != nil || id != 1 {
		t.Fatalf("unexpected create: id=%d err=%v", id, err)
	}
	if _, err := s.CreateUser(ctx, "a@x.io", "h"); !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	s.RemoveUser(id)
	if ok, _ := s.UserExists(ctx, id); ok {
		t.Fatal("expected user to be removed")
	}
	if _, err := s.GetUserByEmail(ctx, "a@x.io"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpenses(t *testing.T) {
	ctx := context.Background()
	s := New()
	add := func(uid int64, desc string, cents int64, cat string, d core.Date) int64 {
		t.Helper()
		id, err := s.CreateExpense(ctx, core.Expense{UserID: uid, Description: desc, Amount: core.Money{Cents: cents}, Category: cat, Date: d})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return id
	}
	a := add(1, "A", 100, "Food", core.NewDate(2024, 1, 5))
	add(1, "B", 200, "Food", core.NewDate(2024, 2, 5))
	add(1, "C", 300, "Transport", core.NewDate(2024, 1, 5))
	add(2, "D", 400, "Food", core.NewDate(2024, 2, 5))

	list, _ := s.ListExpenses(ctx, 1)
	if len(list) != 3 || list[0].Description != "B" || list[1].Description != "A" || list[2].Description != "C" {
		t.Fatalf("unexpected order %+v", list)
	}

	if _, err := s.CreateExpense(ctx, core.Expense{UserID: 1, Description: "", Category: "Food", Date: core.NewDate(2024, 1, 1)}); err == nil {
		t.Fatal("expected validation error")
	}

	cats, _ := s.SumByCategory(ctx, 1)
	if len(cats) != 2 {
		t.Fatalf("unexpected sums %+v", cats)
	}
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	months, _ := s.SumByMonth(ctx, 1, from, to)
	if len(months) != 1 || months[0].Month != "2024-02" || months[0].Amount.Cents != 200 {
		t.Fatalf("unexpected month sums %+v", months)
	}

	if ok, _ := s.DeleteExpense(ctx, 2, a); ok {
		t.Fatal("expected foreign delete to be ignored")
	}
	if ok, _ := s.DeleteExpense(ctx, 1, a); !ok {
		t.Fatal("expected delete")
	}
	if _, err := s.GetExpense(ctx, 1, a); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSessionsAndEvents(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	_ = s.CreateSession(ctx, core.Session{TokenHash: "x", UserID: 1, ExpiresAt: now.Add(-time.Second)})
	_ = s.CreateSession(ctx, core.Session{TokenHash: "y", UserID: 1, ExpiresAt: now.Add(time.Hour)})
	if n, _ := s.DeleteExpiredSessions(ctx, now); n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}

	ev := core.NewExpenseEvent(core.ExpenseCreated, 1, 9, now)
	if ok, _ := s.RecordExpenseEvent(ctx, ev); !ok {
		t.Fatal("expected new event")
	}
	if ok, _ := s.RecordExpenseEvent(ctx, ev); ok {
		t.Fatal("expected duplicate to be ignored")
	}
	events, _ := s.ListExpenseEvents(ctx, 1, 10)
	if len(events) != 1 || events[0].ExpenseID != 9 {
		t.Fatalf("unexpected events %+v", events)
	}
}
