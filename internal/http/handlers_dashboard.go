package http

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"expensely/internal/core"
	applog "expensely/internal/log"
)

// minBarPercent keeps very small non-zero bars visible.
const minBarPercent = 2

type categoryView struct {
	Name    string
	Amount  core.Money
	Color   string
	Percent int
}

type monthView struct {
	Label   string
	Amount  core.Money
	Percent int
}

// expenseForm is the add/edit form. ID is zero when adding.
type expenseForm struct {
	ID          int64
	Description string
	Amount      string
	Category    string
	Date        string
}

type activityView struct {
	When      string
	Action    string
	ExpenseID int64
}

type dashboardPage struct {
	Title      string
	Nav        bool
	Flash      *Flash
	Degraded   bool
	Expenses   []core.Expense
	Total      core.Money
	Categories []categoryView
	Monthly    []monthView
	Options    []string
	Form       expenseForm
	Activity   []activityView
}

// handleDashboard renders the main page: list, totals and the add or edit form.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	p := principalFrom(ctx)
	d, err := s.deps.Dashboard.Dashboard(ctx, p)
	if err != nil {
		s.logger.ErrorContext(ctx, "Dashboard failed", applog.FieldError, err)
		http.Error(w, messageFor(err), statusFor(err))
		return
	}

	page := dashboardPage{
		Title:      "Expenses",
		Nav:        true,
		Flash:      s.popFlash(w, r),
		Degraded:   d.Degraded,
		Expenses:   d.Expenses,
		Total:      d.Total,
		Categories: categoryViews(d.Categories),
		Monthly:    monthViews(d.Monthly),
		Form:       expenseForm{Date: time.Now().Format(core.DateLayout), Category: core.Categories[0]},
		Activity:   s.recentActivity(ctx, p),
	}

	if raw := r.URL.Query().Get("edit"); raw != "" {
		form, err := s.editForm(ctx, p, raw)
		switch {
		case err == nil:
			page.Form = form
		case statusFor(err) == http.StatusInternalServerError:
			s.logger.ErrorContext(ctx, "Load expense for edit failed", applog.FieldError, err)
			page.Flash = &Flash{Kind: flashError, Message: messageFor(err)}
		default:
			page.Flash = &Flash{Kind: flashError, Message: "expense not found"}
		}
	}
	page.Options = categoryOptions(page.Form.Category)

	s.render(w, r, http.StatusOK, "dashboard.html", page)
}

// editForm preloads the form with one of p's expenses.
func (s *Server) editForm(ctx context.Context, p core.Principal, raw string) (expenseForm, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return expenseForm{}, core.ErrNotFound
	}
	e, err := s.deps.Expenses.GetOwned(ctx, p, id)
	if err != nil {
		return expenseForm{}, err
	}
	return expenseForm{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.String(),
	}, nil
}

// categoryOptions lists the standard categories, plus current when an
// expense was stored under a category outside that list.
func categoryOptions(current string) []string {
	if current == "" || slices.Contains(core.Categories, current) {
		return core.Categories
	}
	return append(slices.Clone(core.Categories), current)
}

// recentActivity is best effort; the panel stays empty when the trail
// cannot be read.
func (s *Server) recentActivity(ctx context.Context, p core.Principal) []activityView {
	if s.deps.Activity == nil {
		return nil
	}
	events, err := s.deps.Activity.Recent(ctx, p, 0)
	if err != nil {
		s.logger.WarnContext(ctx, "Recent activity unavailable", applog.FieldError, err)
		return nil
	}
	views := make([]activityView, 0, len(events))
	for _, ev := range events {
		views = append(views, activityView{
			When:      ev.OccurredAt.Local().Format("2006-01-02 15:04"),
			Action:    actionLabel(ev.Type),
			ExpenseID: ev.ExpenseID,
		})
	}
	return views
}

func actionLabel(t core.EventType) string {
	switch t {
	case core.ExpenseCreated:
		return "Added"
	case core.ExpenseUpdated:
		return "Edited"
	case core.ExpenseDeleted:
		return "Deleted"
	default:
		return string(t)
	}
}

// categoryViews scales each category against the largest one.
func categoryViews(totals []core.CategoryTotal) []categoryView {
	var largest int64
	for _, c := range totals {
		if c.Total.Cents > largest {
			largest = c.Total.Cents
		}
	}
	views := make([]categoryView, 0, len(totals))
	for _, c := range totals {
		views = append(views, categoryView{
			Name:    c.Category,
			Amount:  c.Total,
			Color:   c.Color,
			Percent: percentOf(c.Total.Cents, largest),
		})
	}
	return views
}

func monthViews(months []core.MonthTotal) []monthView {
	var largest int64
	for _, m := range months {
		if m.Total.Cents > largest {
			largest = m.Total.Cents
		}
	}
	views := make([]monthView, 0, len(months))
	for _, m := range months {
		views = append(views, monthView{Label: m.Label, Amount: m.Total, Percent: percentOf(m.Total.Cents, largest)})
	}
	return views
}

// percentOf returns the rounded share of v in largest, clamped to
// [minBarPercent, 100] for non-zero values.
func percentOf(v, largest int64) int {
	if largest <= 0 || v <= 0 {
		return 0
	}
	pct := int((v*100 + largest/2) / largest)
	if pct < minBarPercent {
		pct = minBarPercent
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
