package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensely/internal/core"
	"expensely/internal/storage/memory"
)

// failingStore breaks the aggregate queries of an otherwise working store.
type failingStore struct {
	*memory.Store
}

func (failingStore) SumByCategory(context.Context, int64) ([]core.CategoryAmount, error) {
	return nil, core.WrapStorage("sum by category", errors.New("database is locked"))
}

func (failingStore) SumByMonth(context.Context, int64, time.Time, time.Time) ([]core.MonthAmount, error) {
	return nil, core.WrapStorage("sum by month", errors.New("database is locked"))
}

func fixedNow() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }

func seed(t *testing.T, svc *ExpenseService, p core.Principal, inputs ...core.ExpenseInput) {
	t.Helper()
	for _, in := range inputs {
		if _, err := svc.Add(context.Background(), p, in); err != nil {
			t.Fatalf("seed %+v: %v", in, err)
		}
	}
}

func TestDashboardService_CategoryTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, NewExpenseService(store, nil), alice,
		core.ExpenseInput{Description: "Lunch", Amount: "15", Category: "Food", Date: "2024-03-01"},
		core.ExpenseInput{Description: "Train", Amount: "40", Category: "Transport", Date: "2024-03-02"},
		core.ExpenseInput{Description: "Snack", Amount: "5", Category: "Food", Date: "2024-03-03"},
	)
	seed(t, NewExpenseService(store, nil), bob,
		core.ExpenseInput{Description: "Rent", Amount: "900", Category: "Housing", Date: "2024-03-01"},
	)

	svc := NewDashboardService(store, fixedNow)
	got, err := svc.CategoryTotals(ctx, alice)
	if err != nil {
		t.Fatalf("category totals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Category != "Transport" || got[0].Total.String() != "40.00" || got[0].Color != "#36A2EB" {
		t.Fatalf("unexpected first slice %+v", got[0])
	}
	if got[1].Category != "Food" || got[1].Total.String() != "20.00" || got[1].Color != "#FF6384" {
		t.Fatalf("unexpected second slice %+v", got[1])
	}

	empty, err := svc.CategoryTotals(ctx, core.Principal{UserID: 99})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty totals, got %+v err=%v", empty, err)
	}
}

func TestDashboardService_MonthlyTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, NewExpenseService(store, nil), alice,
		core.ExpenseInput{Description: "a", Amount: "20", Category: "Food", Date: "2024-03-10"},
		core.ExpenseInput{Description: "b", Amount: "15", Category: "Food", Date: "2024-06-01"},
		core.ExpenseInput{Description: "too old", Amount: "99", Category: "Food", Date: "2023-06-30"},
		core.ExpenseInput{Description: "first in window", Amount: "1", Category: "Food", Date: "2023-07-01"},
	)

	series, err := NewDashboardService(store, fixedNow).MonthlyTotals(ctx, alice)
	if err != nil {
		t.Fatalf("monthly totals: %v", err)
	}
	if len(series) != 12 {
		t.Fatalf("expected 12 months, got %d", len(series))
	}
	want := map[string]int64{"2023-07": 100, "2024-03": 2000, "2024-06": 1500}
	for _, m := range series {
		if m.Total.Cents != want[m.Label] {
			t.Errorf("%s: got %d, want %d", m.Label, m.Total.Cents, want[m.Label])
		}
	}
	if series[0].Label != "2023-07" || series[11].Label != "2024-06" {
		t.Fatalf("unexpected window %s..%s", series[0].Label, series[11].Label)
	}
}

func TestDashboardService_Dashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, NewExpenseService(store, nil), alice,
		core.ExpenseInput{Description: "a", Amount: "20", Category: "Food", Date: "2024-03-10"},
		core.ExpenseInput{Description: "b", Amount: "15.50", Category: "Other", Date: "2024-06-01"},
	)

	d, err := NewDashboardService(store, fixedNow).Dashboard(ctx, alice)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Degraded {
		t.Fatal("did not expect degraded dashboard")
	}
	if len(d.Expenses) != 2 || d.Expenses[0].Description != "b" {
		t.Fatalf("unexpected expenses %+v", d.Expenses)
	}
	if d.Total.String() != "35.50" {
		t.Fatalf("unexpected total %s", d.Total)
	}
	if len(d.Categories) != 2 || len(d.Monthly) != 12 {
		t.Fatalf("unexpected aggregates %+v %+v", d.Categories, d.Monthly)
	}

	if _, err := NewDashboardService(store, fixedNow).Dashboard(ctx, core.Principal{}); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDashboardService_DegradesOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := failingStore{memory.New()}
	seed(t, NewExpenseService(store, nil), alice,
		core.ExpenseInput{Description: "a", Amount: "20", Category: "Food", Date: "2024-03-10"},
	)

	svc := NewDashboardService(store, fixedNow)
	if _, err := svc.CategoryTotals(ctx, alice); !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	d, err := svc.Dashboard(ctx, alice)
	if err != nil {
		t.Fatalf("dashboard should degrade, got %v", err)
	}
	if !d.Degraded {
		t.Fatal("expected degraded flag")
	}
	if d.Categories == nil || len(d.Categories) != 0 {
		t.Fatalf("expected empty categories, got %+v", d.Categories)
	}
	if len(d.Monthly) != 12 {
		t.Fatalf("expected 12 zero months, got %d", len(d.Monthly))
	}
	for _, m := range d.Monthly {
		if m.Total.Cents != 0 {
			t.Fatalf("expected zero month, got %+v", m)
		}
	}
	if len(d.Expenses) != 1 {
		t.Fatalf("expected list to survive, got %+v", d.Expenses)
	}
}

// monthlyFailingStore fails the monthly query and makes the category query
// wait until that failure has been reported.
type monthlyFailingStore struct {
	*memory.Store
	failed chan struct{}
}

func (s monthlyFailingStore) SumByMonth(context.Context, int64, time.Time, time.Time) ([]core.MonthAmount, error) {
	defer close(s.failed)
	return nil, core.WrapStorage("sum by month", errors.New("database is locked"))
}

func (s monthlyFailingStore) SumByCategory(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	<-s.failed
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return s.Store.SumByCategory(ctx, userID)
}

func TestDashboardService_PartialFailureKeepsOtherReads(t *testing.T) {
	ctx := context.Background()
	store := monthlyFailingStore{Store: memory.New(), failed: make(chan struct{})}
	seed(t, NewExpenseService(store, nil), alice,
		core.ExpenseInput{Description: "a", Amount: "20", Category: "Food", Date: "2024-03-10"},
	)

	d, err := NewDashboardService(store, fixedNow).Dashboard(ctx, alice)
	if err != nil {
		t.Fatalf("dashboard should degrade, got %v", err)
	}
	if !d.Degraded {
		t.Fatal("expected degraded flag")
	}
	if len(d.Categories) != 1 || d.Categories[0].Category != "Food" {
		t.Fatalf("category totals lost after monthly failure: %+v", d.Categories)
	}
	if len(d.Monthly) != 12 {
		t.Fatalf("expected 12 zero months, got %d", len(d.Monthly))
	}
	if len(d.Expenses) != 1 || d.Total.String() != "20.00" {
		t.Fatalf("unexpected list %+v total %s", d.Expenses, d.Total)
	}
}
