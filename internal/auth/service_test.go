package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"expensely/internal/core"
	"expensely/internal/session"
	"expensely/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *session.Manager, *memory.Store) {
	t.Helper()
	store := memory.New()
	sessions := session.NewManager(store, store, time.Hour)
	return NewService(store, sessions, bcrypt.MinCost), sessions, store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, sessions, store := newTestService(t)

	id, token, err := svc.Register(ctx, " a@x.io ", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	uid, err := sessions.Resolve(ctx, token)
	if err != nil || uid != id {
		t.Fatalf("expected auto-login session for %d, got %d err=%v", id, uid, err)
	}

	u, err := store.GetUserByEmail(ctx, "a@x.io")
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if u.PasswordHash == "pw" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")) != nil {
		t.Fatal("expected bcrypt hash of password")
	}

	if _, _, err := svc.Register(ctx, "a@x.io", "other"); !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "pw"},
		{"malformed email", "nope", "pw"},
		{"empty password", "a@x.io", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Register(ctx, tt.email, tt.password); !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTestService(t)

	id, _, err := svc.Register(ctx, "a@x.io", "pw")
	if err != nil {
		t.Fatal(err)
	}

	token, err := svc.Login(ctx, "a@x.io", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if uid, err := sessions.Resolve(ctx, token); err != nil || uid != id {
		t.Fatalf("resolve: %d %v", uid, err)
	}

	_, wrongPw := svc.Login(ctx, "a@x.io", "nope")
	_, unknown := svc.Login(ctx, "b@x.io", "pw")
	if !errors.Is(wrongPw, core.ErrInvalidCredentials) || !errors.Is(unknown, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("failure messages differ: %q vs %q", wrongPw, unknown)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newTestService(t)

	_, token, _ := svc.Register(ctx, "a@x.io", "pw")
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := sessions.Resolve(ctx, token); !errors.Is(err, core.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}
