package http

import (
	"fmt"
	"net/http"

	applog "expensely/internal/log"
)

// Page form handlers answer with a flash and a 303 back to the dashboard.

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(r)
	if err != nil {
		s.redirectWithFlash(w, r, "/", flashError, "invalid request")
		return
	}

	id, err := s.deps.Expenses.Add(r.Context(), principalFrom(r.Context()), in)
	if err != nil {
		s.logFailure(r, applog.OpCreate, err)
		s.redirectWithFlash(w, r, "/", flashError, messageFor(err))
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldExpenseID, id,
		applog.FieldCategory, in.Category)
	s.redirectWithFlash(w, r, "/", flashSuccess, fmt.Sprintf("Expense %q added.", in.Description))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(r)
	if !ok {
		s.redirectWithFlash(w, r, "/", flashError, "expense not found")
		return
	}
	in, err := ParseExpenseInput(r)
	if err != nil {
		s.redirectWithFlash(w, r, fmt.Sprintf("/?edit=%d", id), flashError, "invalid request")
		return
	}

	if err := s.deps.Expenses.Update(r.Context(), principalFrom(r.Context()), id, in); err != nil {
		s.logFailure(r, applog.OpUpdate, err, applog.FieldExpenseID, id)
		target := "/"
		if statusFor(err) == http.StatusUnprocessableEntity {
			target = fmt.Sprintf("/?edit=%d", id)
		}
		s.redirectWithFlash(w, r, target, flashError, messageFor(err))
		return
	}
	s.redirectWithFlash(w, r, "/", flashSuccess, "Expense updated.")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(r)
	if !ok {
		s.redirectWithFlash(w, r, "/", flashError, "expense not found")
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), principalFrom(r.Context()), id); err != nil {
		s.logFailure(r, applog.OpDelete, err, applog.FieldExpenseID, id)
		s.redirectWithFlash(w, r, "/", flashError, messageFor(err))
		return
	}
	s.redirectWithFlash(w, r, "/", flashSuccess, "Expense deleted.")
}

// attachmentWriter defers the download headers until the first byte of the
// body, so a failure before any output can still answer with a redirect.
type attachmentWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		a.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		a.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.filename))
	}
	return a.w.Write(p)
}

// handleExport streams the caller's expenses as a CSV attachment. Once the
// first row is out the status is fixed, so later failures only truncate the
// body and are logged.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	out := &attachmentWriter{w: w, filename: s.deps.Export.Filename()}

	err := s.deps.Export.WriteCSV(r.Context(), p, out)
	if err == nil {
		return
	}
	applog.NewStructuredLogger(s.logger.WithComponent(applog.ComponentExpense)).
		LogError(r.Context(), "CSV export failed", err, applog.OpExport,
			applog.NewFields().WithUser(p.UserID))
	if !out.started {
		s.redirectWithFlash(w, r, "/", flashError, messageFor(err))
	}
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	s.setFlash(w, kind, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// logFailure logs unexpected errors. Client errors such as validation and
// not found are logged at info.
func (s *Server) logFailure(r *http.Request, op string, err error, args ...any) {
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentExpense)
	args = append(args, applog.FieldOperation, op, applog.FieldError, err)
	if statusFor(err) == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Expense operation failed", args...)
		return
	}
	logger.InfoContext(r.Context(), "Expense operation rejected", args...)
}
