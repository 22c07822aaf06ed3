package backend

import (
	"context"

	"expensely/internal/services"
	"expensely/internal/sheets"
	"expensely/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result bundles the components opened for one process. Publisher and
// Activity are nil when not configured.
type Result struct {
	Store     storage.Store
	Sessions  storage.SessionStore
	Publisher services.EventPublisher
	Activity  sheets.ActivityWriter
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	SessionBackend SessionBackendType
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID   string
	GoogleActivitySheet   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
}

// BackendType selects the persistent store.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SessionBackendType selects where sessions live: the main store or Redis.
type SessionBackendType string

const (
	SQLSessions   SessionBackendType = "sql"
	RedisSessions SessionBackendType = "redis"
)

func (st SessionBackendType) IsValid() bool {
	return st == SQLSessions || st == RedisSessions
}
