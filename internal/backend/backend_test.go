package backend

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"expensely/internal/config"
	"expensely/internal/core"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:    "postgres",
		DatabaseURL:    "postgres://localhost/expensely",
		SessionBackend: "redis",
		RedisAddr:      "localhost:6379",
		AMQPURL:        "amqp://localhost/",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.SessionBackend != RedisSessions || cfg.AMQPURL == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", SessionBackend: SQLSessions}, ""},
		{"unknown type", Config{Type: "sheets"}, "invalid backend type"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"postgres without url", Config{Type: PostgresBackend}, "database URL is required"},
		{"bad sessions", Config{Type: MemoryBackend, SessionBackend: "file"}, "invalid session backend"},
		{"redis without addr", Config{Type: MemoryBackend, SessionBackend: RedisSessions}, "redis address is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(quietLogger()).CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.Publisher != nil {
		t.Fatal("publisher should be nil without AMQP_URL")
	}
	if res.Activity == nil {
		t.Fatal("memory backend should mirror activity in memory")
	}
	if err := res.Store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestCreateBackend_SQLiteWithRedisSessions(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	res, err := NewFactory(quietLogger()).CreateBackend(ctx, Config{
		Type:           SQLiteBackend,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "expensely.db"),
		SessionBackend: RedisSessions,
		RedisAddr:      mr.Addr(),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.Activity != nil {
		t.Fatal("sqlite backend without spreadsheet should not mirror activity")
	}

	now := time.Now()
	s := core.Session{TokenHash: "h", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := res.Sessions.CreateSession(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !mr.Exists("expensely:session:h") {
		t.Fatal("session should be stored in redis")
	}
}

func TestCreateBackend_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewFactory(quietLogger()).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		SessionBackend: RedisSessions,
		RedisAddr:      addr,
	})
	if err == nil || !strings.Contains(err.Error(), "redis session store") {
		t.Fatalf("expected redis error, got %v", err)
	}
}
