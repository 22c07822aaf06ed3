// Package session issues and resolves opaque session tokens.
//
// Only the SHA-256 hash of a token is persisted. A session resolves to its
// user id while it is unexpired and the user still exists; anything else is
// core.ErrInvalidSession and the stale record is removed.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensely/internal/core"
	"expensely/internal/storage"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

const tokenBytes = 32

type Manager struct {
	store storage.SessionStore
	users storage.UserStore
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store storage.SessionStore, users storage.UserStore, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{store: store, users: users, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create issues a session for userID and returns its token.
func (m *Manager) Create(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", core.ErrUnauthorized
	}
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	now := m.now().UTC()
	err := m.store.CreateSession(ctx, core.Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	slog.InfoContext(ctx, "Session created", "user_id", userID)
	return token, nil
}

// Resolve maps token to its user id.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, core.ErrInvalidSession
	}
	hash := HashToken(token)
	sess, err := m.store.GetSession(ctx, hash)
	if errors.Is(err, core.ErrNotFound) {
		return 0, core.ErrInvalidSession
	}
	if err != nil {
		return 0, fmt.Errorf("resolve session: %w", err)
	}

	if sess.Expired(m.now()) {
		m.discard(ctx, hash, "expired")
		return 0, core.ErrInvalidSession
	}

	exists, err := m.users.UserExists(ctx, sess.UserID)
	if err != nil {
		return 0, fmt.Errorf("resolve session user: %w", err)
	}
	if !exists {
		m.discard(ctx, hash, "user_missing")
		return 0, core.ErrInvalidSession
	}
	return sess.UserID, nil
}

// Destroy ends the session; unknown tokens are ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.DeleteSession(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired session and returns how many were removed.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return n, nil
}

func (m *Manager) discard(ctx context.Context, hash, reason string) {
	if err := m.store.DeleteSession(ctx, hash); err != nil {
		slog.WarnContext(ctx, "Failed to delete invalid session", "reason", reason, "error", err)
		return
	}
	slog.InfoContext(ctx, "Invalid session discarded", "reason", reason)
}

// HashToken is the storage key of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
