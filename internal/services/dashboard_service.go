package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"expensely/internal/core"
	"expensely/internal/storage"
)

// Dashboard is everything the main page renders for one user.
type Dashboard struct {
	Expenses   []core.Expense
	Total      core.Money
	Categories []core.CategoryTotal
	Monthly    []core.MonthTotal
	// Degraded is set when a read failed and an empty result was substituted.
	Degraded bool
}

// DashboardService computes per-request aggregates; nothing is cached.
type DashboardService struct {
	storage storage.ExpenseStore
	now     func() time.Time
}

func NewDashboardService(store storage.ExpenseStore, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{storage: store, now: now}
}

// CategoryTotals returns p's totals per category, largest first.
func (s *DashboardService) CategoryTotals(ctx context.Context, p core.Principal) ([]core.CategoryTotal, error) {
	if !p.Authenticated() {
		return nil, core.ErrUnauthorized
	}
	sums, err := s.storage.SumByCategory(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return core.CategoryTotals(sums), nil
}

// MonthlyTotals returns exactly twelve zero-filled months ending with the current one.
func (s *DashboardService) MonthlyTotals(ctx context.Context, p core.Principal) ([]core.MonthTotal, error) {
	if !p.Authenticated() {
		return nil, core.ErrUnauthorized
	}
	now := s.now()
	from, to := core.MonthWindow(now, core.MonthsInWindow)
	sums, err := s.storage.SumByMonth(ctx, p.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return core.MonthlySeries(now, sums), nil
}

// Dashboard loads the list and both aggregates concurrently. A failed read
// is logged and replaced by its empty form so the page still renders. The
// group carries no shared context: one failed read must not cancel the others.
func (s *DashboardService) Dashboard(ctx context.Context, p core.Principal) (Dashboard, error) {
	if !p.Authenticated() {
		return Dashboard{}, core.ErrUnauthorized
	}

	var d Dashboard
	var g errgroup.Group
	g.Go(func() error {
		expenses, err := s.storage.ListExpenses(ctx, p.UserID)
		if err != nil {
			slog.ErrorContext(ctx, "Dashboard expense list unavailable", "user_id", p.UserID, "error", err)
			return fmt.Errorf("expense list: %w", err)
		}
		d.Expenses = expenses
		return nil
	})
	g.Go(func() error {
		categories, err := s.CategoryTotals(ctx, p)
		if err != nil {
			slog.ErrorContext(ctx, "Dashboard category totals unavailable", "user_id", p.UserID, "error", err)
			d.Categories = []core.CategoryTotal{}
			return err
		}
		d.Categories = categories
		return nil
	})
	g.Go(func() error {
		monthly, err := s.MonthlyTotals(ctx, p)
		if err != nil {
			slog.ErrorContext(ctx, "Dashboard monthly totals unavailable", "user_id", p.UserID, "error", err)
			d.Monthly = core.EmptyMonthlySeries(s.now())
			return err
		}
		d.Monthly = monthly
		return nil
	})
	if err := g.Wait(); err != nil {
		d.Degraded = true
	}

	d.Total = core.TotalOf(d.Expenses)
	return d, nil
}
