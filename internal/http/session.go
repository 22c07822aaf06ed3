package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"expensely/internal/core"
	applog "expensely/internal/log"
)

const (
	sessionCookieName = "expensely_session"
	flashCookieName   = "expensely_flash"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the authenticated caller, or the zero Principal.
func principalFrom(ctx context.Context) core.Principal {
	p, _ := ctx.Value(principalKey{}).(core.Principal)
	return p
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.deps.Sessions.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// resolve maps token to a principal. Infrastructure failures are logged and
// reported as an invalid session so the caller re-authenticates.
func (s *Server) resolve(r *http.Request, token string) (core.Principal, error) {
	userID, err := s.deps.Sessions.Resolve(r.Context(), token)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidSession) {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed", applog.FieldError, err)
		}
		return core.Principal{}, core.ErrInvalidSession
	}
	return core.Principal{UserID: userID}, nil
}

// requirePageSession redirects to /login unless the session cookie resolves.
func (s *Server) requirePageSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		p, err := s.resolve(r, token)
		if err != nil {
			if token != "" {
				s.clearSessionCookie(w)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := withPrincipal(r.Context(), p)
		ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldUserID, p.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAPISession accepts a bearer token or the session cookie and answers
// 401 JSON otherwise. Preflight requests pass through.
func (s *Server) requireAPISession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			token = sessionToken(r)
		}
		p, err := s.resolve(r, token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="expensely"`)
			ErrorResponse(http.StatusUnauthorized, "invalid or expired session").Write(w)
			return
		}
		ctx := withPrincipal(r.Context(), p)
		ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldUserID, p.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Kind    string
	Message string
}

const (
	flashSuccess = "success"
	flashError   = "error"
)

func (s *Server) setFlash(w http.ResponseWriter, kind, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(kind + "\x00" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash cookie.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.opts.CookieSecure})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "\x00")
	if !ok || (kind != flashSuccess && kind != flashError) {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}
