// Package redis stores sessions in Redis with a key TTL matching their expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"expensely/internal/core"
	"expensely/internal/storage"
)

const keyPrefix = "expensely:session:"

var _ storage.SessionStore = (*Store)(nil)

type Store struct {
	rdb *goredis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

type record struct {
	UserID    int64 `json:"user_id"`
	CreatedAt int64 `json:"created_at"`
	ExpiresAt int64 `json:"expires_at"`
}

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(record{
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return core.WrapStorage("create session", s.rdb.Set(ctx, keyPrefix+sess.TokenHash, payload, ttl).Err())
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (core.Session, error) {
	payload, err := s.rdb.Get(ctx, keyPrefix+tokenHash).Bytes()
	if errors.Is(err, goredis.Nil) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, core.WrapStorage("get session", err)
	}
	var r record
	if err := json.Unmarshal(payload, &r); err != nil {
		return core.Session{}, core.WrapStorage("decode session", err)
	}
	return core.Session{
		TokenHash: tokenHash,
		UserID:    r.UserID,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(r.ExpiresAt, 0).UTC(),
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	return core.WrapStorage("delete session", s.rdb.Del(ctx, keyPrefix+tokenHash).Err())
}

// DeleteExpiredSessions is a no-op: Redis evicts expired keys itself.
func (s *Store) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}
