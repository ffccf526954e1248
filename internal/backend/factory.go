// Package backend opens the configured entry storage and event client.
package backend

import (
	"context"
	"errors"
	"fmt"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/kv/badgerkv"
	"wellnesslog/internal/kv/filekv"
	"wellnesslog/internal/kv/memory"
	applog "wellnesslog/internal/log"
	"wellnesslog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

func noopReady(context.Context) error { return nil }

// CreateBackend opens the storage selected by config.Type. A broker that
// cannot be reached only disables events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result = &BackendResult{Store: memory.New(), Cleanup: func() error { return nil }, Ready: noopReady}
	case FileBackend:
		result, err = f.createFileBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case BadgerBackend:
		result, err = f.createBadgerBackend(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized entry storage", applog.FieldBackend, config.Type.String())
	f.attachEvents(ctx, config, result)
	return result, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := filekv.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	return &BackendResult{Store: store, Cleanup: func() error { return nil }, Ready: noopReady}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	return &BackendResult{Store: repo, Cleanup: repo.Close, Ready: repo.Ping}, nil
}

func (f *DefaultFactory) createBadgerBackend(config Config) (*BackendResult, error) {
	store, err := badgerkv.Open(badgerkv.Options{Dir: config.BadgerDir})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BackendResult{Store: store, Cleanup: store.Close, Ready: noopReady}, nil
}

// attachEvents connects the AMQP client and chains its Close into Cleanup.
func (f *DefaultFactory) attachEvents(ctx context.Context, config Config, result *BackendResult) {
	if config.AMQPURL == "" {
		return
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	storeCleanup := result.Cleanup
	result.Events = client
	result.Cleanup = func() error {
		return errors.Join(client.Close(), storeCleanup())
	}
}
