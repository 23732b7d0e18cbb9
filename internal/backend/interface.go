package backend

import (
	"context"
	"time"

	"workdash/internal/cache"
	"workdash/internal/services"
	"workdash/internal/session"
	"workdash/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything the server needs to serve sessions. Only
// Sessions is always set; the other parts are nil when not configured.
type BackendResult struct {
	Sessions  session.Store
	Publisher services.EventPublisher
	Sample    sheets.TableReader
	Sheets    sheets.TableReader
	// Cleaners need periodic expiry sweeps.
	Cleaners []cache.Cleaner
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Sessions
	SQLiteDBPath string
	SessionTTL   time.Duration
	MaxSessions  int

	// AMQP, enabled when AMQPURL is set
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Table sources
	SampleDataDir string
	SheetsEnabled bool
}

// BackendType selects where sessions are stored.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
