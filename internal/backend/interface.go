package backend

import (
	"context"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/kv"
	"wellnesslog/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the opened entry storage plus the optional event client.
type BackendResult struct {
	Store kv.Store
	// Events is nil when change events are disabled or the broker was
	// unreachable at startup.
	Events  *amqp.Client
	Cleanup CleanupFunc
	// Ready reports whether the storage can serve requests.
	Ready func(ctx context.Context) error
}

// Publisher returns Events as a services.EventPublisher, or a nil interface
// when events are off.
func (r *BackendResult) Publisher() services.EventPublisher {
	if r.Events == nil {
		return nil
	}
	return r.Events
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// file backend
	DataDirectory string
	// sqlite backend
	SQLiteDBPath string
	// badger backend
	BadgerDir string

	// optional change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	BadgerBackend BackendType = "badger"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, BadgerBackend:
		return true
	default:
		return false
	}
}
