// Package backend builds the storage and eventing stack selected by
// configuration.
package backend

import (
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/storage/memory"
	"tally/internal/storage/postgres"
	"tally/internal/storage/sqlite"
)

// Result bundles everything a backend provides. Publisher is nil when
// AMQP is not configured; Cleanup is never nil.
type Result struct {
	Store     storage.Store
	Vendors   storage.VendorStore
	Queue     storage.ExportQueue
	Publisher services.EventPublisher
	Cleanup   func() error
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) Create(cfg *config.Config) (*Result, error) {
	switch cfg.DataBackend {
	case "memory":
		return f.createMemory(cfg)
	case "sqlite":
		return f.createSQLite(cfg)
	case "postgres":
		return f.createPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

func (f *Factory) createMemory(cfg *config.Config) (*Result, error) {
	store := memory.NewStore()
	f.logger.Info("Initialized memory backend")
	return f.withPublisher(cfg, &Result{
		Store:   store,
		Vendors: store,
		Queue:   store,
		Cleanup: func() error { return nil },
	}), nil
}

func (f *Factory) createSQLite(cfg *config.Config) (*Result, error) {
	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite backend: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return f.withPublisher(cfg, &Result{
		Store:   repo,
		Vendors: repo,
		Queue:   repo,
		Cleanup: repo.Close,
	}), nil
}

func (f *Factory) createPostgres(cfg *config.Config) (*Result, error) {
	store, err := postgres.NewStore(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres backend: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return f.withPublisher(cfg, &Result{
		Store:   store,
		Vendors: store,
		Queue:   store,
		Cleanup: store.Close,
	}), nil
}

// withPublisher attaches the AMQP publisher when configured. A broker
// that is down at startup only disables eventing, it never blocks the
// server; the export worker's backfill covers the gap.
func (f *Factory) withPublisher(cfg *config.Config, result *Result) *Result {
	if cfg.AMQPURL == "" {
		return result
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without eventing", "error", err)
		return result
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	result.Publisher = client
	innerCleanup := result.Cleanup
	result.Cleanup = func() error {
		if err := client.Close(); err != nil {
			f.logger.Warn("Failed to close AMQP client", "error", err)
		}
		return innerCleanup()
	}
	return result
}
