// Package auth registers users and exchanges credentials for sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"expensely/internal/core"
	"expensely/internal/storage"
)

// Sessions is the part of the session manager the service needs.
type Sessions interface {
	Create(ctx context.Context, userID int64) (string, error)
	Destroy(ctx context.Context, token string) error
}

type Service struct {
	users    storage.UserStore
	sessions Sessions
	cost     int
	dummy    []byte
}

// NewService builds the service; cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewService(users storage.UserStore, sessions Sessions, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against for unknown emails so both failure paths pay one bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("expensely-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("auth: generate dummy hash: %v", err))
	}
	return &Service{users: users, sessions: sessions, cost: cost, dummy: dummy}
}

// Register creates a user and logs them in.
func (s *Service) Register(ctx context.Context, email, password string) (int64, string, error) {
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return 0, "", err
	}
	if err := core.ValidatePassword(password); err != nil {
		return 0, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, "", fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			slog.InfoContext(ctx, "Registration rejected", "reason", "duplicate_email")
		}
		return 0, "", err
	}

	token, err := s.sessions.Create(ctx, id)
	if err != nil {
		return 0, "", err
	}
	slog.InfoContext(ctx, "User registered", "user_id", id)
	return id, token, nil
}

// Login verifies the password and opens a session. Unknown emails and wrong
// passwords both fail with core.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeForLookup(email))
	if errors.Is(err, core.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		slog.InfoContext(ctx, "Login failed", "reason", "unknown_email")
		return "", core.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.InfoContext(ctx, "Login failed", "reason", "bad_password", "user_id", user.ID)
		return "", core.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return token, nil
}

// Logout ends the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

func normalizeForLookup(email string) string {
	if e, err := core.NormalizeEmail(email); err == nil {
		return e
	}
	return email
}
