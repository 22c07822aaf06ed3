package http

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"expensely/internal/core"
)

var templateFuncs = template.FuncMap{
	"money":   formatMoney,
	"safeCSS": func(s string) template.CSS { return template.CSS(s) },
}

// formatMoney renders an amount with a dollar sign, e.g. "$1234.50".
func formatMoney(m core.Money) string {
	if m.Cents < 0 {
		return "-$" + core.Money{Cents: -m.Cents}.String()
	}
	return "$" + m.String()
}

// sanitizeInput strips control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// expenseID parses the {id} route parameter.
func expenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, core.ErrInvalidSession), errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns text safe to show the user. Storage and unexpected
// errors are never echoed.
func messageFor(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidCredentials), errors.Is(err, core.ErrDuplicateEmail):
		return err.Error()
	case errors.Is(err, core.ErrNotFound):
		return "expense not found"
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, core.ErrInvalidSession):
		return "please log in again"
	default:
		return "something went wrong, please try again"
	}
}
