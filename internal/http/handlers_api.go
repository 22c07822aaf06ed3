package http

import (
	"net/http"
	"strconv"
	"time"

	"expensely/internal/core"
	applog "expensely/internal/log"
	"expensely/internal/services"
)

type expenseJSON struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

type categoryJSON struct {
	Category   string `json:"category"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Color      string `json:"color"`
}

type monthJSON struct {
	Month      string `json:"month"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
}

type activityJSON struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	ExpenseID  int64  `json:"expense_id"`
	OccurredAt string `json:"occurred_at"`
}

type dashboardJSON struct {
	Expenses   []expenseJSON  `json:"expenses"`
	Total      string         `json:"total"`
	TotalCents int64          `json:"total_cents"`
	Categories []categoryJSON `json:"categories"`
	Monthly    []monthJSON    `json:"monthly"`
	Degraded   bool           `json:"degraded,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Date:        e.Date.String(),
	}
}

func toExpensesJSON(list []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(list))
	for _, e := range list {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

func toDashboardJSON(d services.Dashboard) dashboardJSON {
	out := dashboardJSON{
		Expenses:   toExpensesJSON(d.Expenses),
		Total:      d.Total.String(),
		TotalCents: d.Total.Cents,
		Categories: make([]categoryJSON, 0, len(d.Categories)),
		Monthly:    make([]monthJSON, 0, len(d.Monthly)),
		Degraded:   d.Degraded,
	}
	for _, c := range d.Categories {
		out.Categories = append(out.Categories, categoryJSON{Category: c.Category, Total: c.Total.String(), TotalCents: c.Total.Cents, Color: c.Color})
	}
	for _, m := range d.Monthly {
		out.Monthly = append(out.Monthly, monthJSON{Month: m.Label, Total: m.Total.String(), TotalCents: m.Total.Cents})
	}
	return out
}

func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Expenses.List(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.logFailure(r, applog.OpList, err)
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"expenses": toExpensesJSON(list)}).Write(w)
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	p := principalFrom(r.Context())
	id, err := s.deps.Expenses.Add(r.Context(), p, in)
	if err != nil {
		s.logFailure(r, applog.OpCreate, err)
		ErrorFor(err).Write(w)
		return
	}
	e, err := s.deps.Expenses.GetOwned(r.Context(), p, id)
	if err != nil {
		s.logFailure(r, applog.OpRead, err, applog.FieldExpenseID, id)
		ErrorFor(err).Write(w)
		return
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentExpense).InfoContext(r.Context(), "Expense created",
		applog.NewFields().WithExpense(e.ID, e.Amount.Cents, e.Category).ToSlice()...)
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+strconv.FormatInt(id, 10)).
		JSON(toExpenseJSON(e)).
		Write(w)
}

func (s *Server) handleAPIGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(r)
	if !ok {
		NotFoundError("expense not found").Write(w)
		return
	}
	e, err := s.deps.Expenses.GetOwned(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		s.logFailure(r, applog.OpRead, err, applog.FieldExpenseID, id)
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(toExpenseJSON(e)).Write(w)
}

func (s *Server) handleAPIUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(r)
	if !ok {
		NotFoundError("expense not found").Write(w)
		return
	}
	in, err := ParseExpenseInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	p := principalFrom(r.Context())
	if err := s.deps.Expenses.Update(r.Context(), p, id, in); err != nil {
		s.logFailure(r, applog.OpUpdate, err, applog.FieldExpenseID, id)
		ErrorFor(err).Write(w)
		return
	}
	e, err := s.deps.Expenses.GetOwned(r.Context(), p, id)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(toExpenseJSON(e)).Write(w)
}

func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(r)
	if !ok {
		NotFoundError("expense not found").Write(w)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), principalFrom(r.Context()), id); err != nil {
		s.logFailure(r, applog.OpDelete, err, applog.FieldExpenseID, id)
		ErrorFor(err).Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboard.Dashboard(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.logFailure(r, applog.OpRead, err)
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(toDashboardJSON(d)).Write(w)
}

// handleAPIActivity lists the caller's recent expense events, newest first.
func (s *Server) handleAPIActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			BadRequestError("limit must be a positive integer").Write(w)
			return
		}
		limit = n
	}

	events, err := s.deps.Activity.Recent(r.Context(), principalFrom(r.Context()), limit)
	if err != nil {
		s.logFailure(r, applog.OpList, err)
		ErrorFor(err).Write(w)
		return
	}
	out := make([]activityJSON, 0, len(events))
	for _, ev := range events {
		out = append(out, activityJSON{
			ID:         ev.ID,
			Type:       string(ev.Type),
			ExpenseID:  ev.ExpenseID,
			OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	NewResponse().JSON(map[string]any{"events": out}).Write(w)
}
