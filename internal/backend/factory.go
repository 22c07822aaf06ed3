package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensely/internal/amqp"
	sessionredis "expensely/internal/session/redis"
	gsheet "expensely/internal/sheets/google"
	sheetsmem "expensely/internal/sheets/memory"
	"expensely/internal/storage"
	"expensely/internal/storage/memory"
	"expensely/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the store, the session store and the optional AMQP
// publisher and activity sheet. A failure closes whatever was already opened.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)
	res := &Result{Store: store, Sessions: store, Cleanup: cleanup}

	if config.SessionBackend == RedisSessions {
		rs, err := sessionredis.Connect(ctx, sessionredis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("failed to initialize redis session store: %w", err)
		}
		closers = append(closers, rs.Close)
		res.Sessions = rs
		f.logger.Info("Initialized redis session store", "addr", config.RedisAddr)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			closers = append(closers, client.Close)
			res.Publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	switch {
	case config.GoogleSpreadsheetID != "":
		sheetsClient, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			ActivitySheet:      config.GoogleActivitySheet,
			ServiceAccountJSON: config.GoogleCredentialsJSON,
			ServiceAccountFile: config.GoogleCredentialsFile,
		})
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res.Activity = sheetsClient
	case config.Type == MemoryBackend:
		res.Activity = sheetsmem.New()
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"sessions", config.SessionBackend,
		"amqp_enabled", res.Publisher != nil,
		"activity_enabled", res.Activity != nil)

	return res, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		pg, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.logger.Info("Initialized postgres store")
		return pg, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
