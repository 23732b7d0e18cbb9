package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"workdash/internal/amqp"
	"workdash/internal/cache"
	"workdash/internal/session"
	gsheet "workdash/internal/sheets/google"
	"workdash/internal/sheets/memory"
	"workdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. The session store is
// required; AMQP and table sources degrade to nil when they fail.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &BackendResult{}
	var closers []func() error

	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteSessionStore(config.SQLiteDBPath, config.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		result.Sessions = store
		result.Cleaners = append(result.Cleaners, store)
		f.logger.Info("Initialized SQLite session store", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store := session.NewMemoryStore(config.MaxSessions, config.SessionTTL)
		result.Sessions = store
		result.Cleaners = append(result.Cleaners, store)
		f.logger.Info("Initialized memory session store", "max_sessions", config.MaxSessions)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	closers = append(closers, result.Sessions.Close)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without upload events", "error", err)
		} else {
			result.Publisher = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if config.SampleDataDir != "" {
		sample, err := memory.NewFromFiles(config.SampleDataDir)
		switch {
		case err == nil:
			result.Sample = sample
		case errors.Is(err, os.ErrNotExist):
			f.logger.Info("No sample data found", "data_directory", config.SampleDataDir)
		default:
			f.logger.Warn("Failed to load sample data", "data_directory", config.SampleDataDir, "error", err)
		}
	}

	if config.SheetsEnabled {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets source", "error", err)
		} else {
			result.Sheets = client
			f.logger.Info("Initialized Google Sheets source", "source", client.Name())
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Backend ready",
		"type", config.Type,
		"amqp_enabled", result.Publisher != nil,
		"sample_enabled", result.Sample != nil,
		"sheets_enabled", result.Sheets != nil)

	return result, nil
}

// compile-time checks for the cleaners the factory registers
var (
	_ cache.Cleaner = (*session.MemoryStore)(nil)
	_ cache.Cleaner = (*storage.SQLiteSessionStore)(nil)
)
