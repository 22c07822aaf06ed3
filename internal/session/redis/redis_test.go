package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"expensely/internal/core"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := Connect(context.Background(), Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	sess := core.Session{TokenHash: "abc", UserID: 42, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ttl := mr.TTL(keyPrefix + "abc"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	got, err := s.GetSession(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 42 || !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := s.DeleteSession(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSession(ctx, "abc"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisSessionExpiresWithKey(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	now := time.Now().UTC()

	if err := s.CreateSession(ctx, core.Session{TokenHash: "k", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.GetSession(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	mr.Close()
	_, err := s.GetSession(ctx, "x")
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
