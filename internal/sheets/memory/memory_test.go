package memory

import (
	"context"
	"testing"
	"time"

	"expensely/internal/core"
)

func TestStoreAppendActivity(t *testing.T) {
	s := New()
	ctx := context.Background()
	ev := core.NewExpenseEvent(core.ExpenseCreated, 7, 1, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	ref, err := s.AppendActivity(ctx, ev)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	again, err := s.AppendActivity(ctx, ev)
	if err != nil || again != "mem:1" {
		t.Fatalf("duplicate append: ref=%q err=%v", again, err)
	}

	rows := s.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0][0] != "2024-01-02T03:04:05Z" || rows[0][1] != "expense.created" {
		t.Fatalf("unexpected row %v", rows[0])
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	if _, err := New().AppendActivity(context.Background(), core.ExpenseEvent{}); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
