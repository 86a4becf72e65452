package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/avatarctic/offline-sync/configs"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	infraDB "github.com/avatarctic/offline-sync/internal/infrastructure/db"
	"github.com/avatarctic/offline-sync/internal/infrastructure/health"
	infraRedis "github.com/avatarctic/offline-sync/internal/infrastructure/redis"
	"github.com/sirupsen/logrus"
)

// Backend is an opened persistence store together with its health checker.
type Backend struct {
	Name    string
	Store   ports.PersistenceAdapter
	Checker ports.HealthChecker
	closers []func() error
}

// Close releases the underlying connection or database files.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the store selected by PERSISTENCE_BACKEND.
func Open(ctx context.Context, cfg *configs.Config, logger *logrus.Logger) (*Backend, error) {
	prefix := cfg.Persistence.NamespacePrefix
	b := &Backend{Name: cfg.Persistence.Backend}

	switch cfg.Persistence.Backend {
	case configs.BackendMemory:
		b.Store = NewMemoryStore()
		b.Checker = health.NewStoreChecker(configs.BackendMemory, nil)

	case configs.BackendRedis:
		client, err := infraRedis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.Store = NewRedisStore(client, prefix)
		b.Checker = health.NewRedisChecker(client)
		b.closers = append(b.closers, client.Close)

	case configs.BackendPostgres:
		database, err := infraDB.NewDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		version, err := database.Migrate(cfg.Database.MigrationsPath)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		if logger != nil {
			logger.WithField("schema_version", version).Info("postgres schema migrated")
		}
		b.Store = NewPostgresStore(database.DB, prefix)
		b.Checker = health.NewPostgresChecker(database)
		b.closers = append(b.closers, database.Close)

	case configs.BackendBadger:
		store, err := NewBadgerStore(cfg.Persistence.BadgerPath, prefix)
		if err != nil {
			return nil, err
		}
		b.Store = store
		b.Checker = health.NewStoreChecker(configs.BackendBadger, store.Ping)
		b.closers = append(b.closers, store.Close)

	case configs.BackendSQLite:
		store, err := NewSQLiteStore(cfg.Persistence.SQLitePath, prefix)
		if err != nil {
			return nil, err
		}
		b.Store = store
		b.Checker = health.NewStoreChecker(configs.BackendSQLite, store.Ping)
		b.closers = append(b.closers, store.Close)

	default:
		return nil, fmt.Errorf("unsupported persistence backend: %s", cfg.Persistence.Backend)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{"backend": b.Name, "prefix": prefix}).Info("persistence backend opened")
	}
	return b, nil
}

// namespacedKey joins the configured prefix and the engine namespace.
func namespacedKey(prefix, namespace string) string {
	if prefix == "" {
		return namespace
	}
	return prefix + ":" + namespace
}
