package http

import (
	"bytes"
	"errors"
	"net/http"

	"expensely/internal/core"
	applog "expensely/internal/log"
)

type authPage struct {
	Title string
	Nav   bool
	Email string
	Error string
	Flash *Flash
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authPage{Title: "Create account", Flash: s.popFlash(w, r)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, err := ParseCredentials(r)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "register.html", authPage{Title: "Create account", Error: "invalid request"})
		return
	}

	userID, token, err := s.deps.Auth.Register(r.Context(), creds.Email, creds.Password)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.authLogger().ErrorContext(r.Context(), "Registration failed",
				applog.FieldOperation, applog.OpRegister,
				applog.FieldError, err)
		}
		s.render(w, r, statusFor(err), "register.html", authPage{
			Title: "Create account",
			Email: creds.Email,
			Error: messageFor(err),
		})
		return
	}

	s.authLogger().InfoContext(r.Context(), "Account created",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldUserID, userID)
	s.setSessionCookie(w, token)
	s.setFlash(w, flashSuccess, "Welcome to Expensely!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if _, err := s.resolve(r, token); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.render(w, r, http.StatusOK, "login.html", authPage{Title: "Log in", Flash: s.popFlash(w, r)})
}

// handleLogin answers every failed attempt with the same message so that
// unknown emails and wrong passwords are indistinguishable.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := ParseCredentials(r)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", authPage{Title: "Log in", Error: "invalid request"})
		return
	}

	token, err := s.deps.Auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		status, msg := http.StatusUnauthorized, core.ErrInvalidCredentials.Error()
		if !errors.Is(err, core.ErrInvalidCredentials) {
			s.authLogger().ErrorContext(r.Context(), "Login failed",
				applog.FieldOperation, applog.OpLogin,
				applog.FieldError, err)
			status, msg = http.StatusInternalServerError, messageFor(err)
		}
		s.render(w, r, status, "login.html", authPage{Title: "Log in", Email: creds.Email, Error: msg})
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
			s.authLogger().WarnContext(r.Context(), "Logout failed", applog.FieldError, err)
		}
	}
	s.clearSessionCookie(w)
	s.setFlash(w, flashSuccess, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) authLogger() *applog.Logger {
	return s.logger.WithComponent(applog.ComponentAuth)
}

// render buffers the named template and writes it with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
