// Package factory opens the collection backend selected by configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/R3E-Network/app_registry/internal/app/storage"
	"github.com/R3E-Network/app_registry/internal/app/storage/jsonfile"
	"github.com/R3E-Network/app_registry/internal/app/storage/memory"
	"github.com/R3E-Network/app_registry/internal/app/storage/postgres"
	"github.com/R3E-Network/app_registry/internal/app/storage/redis"
	"github.com/R3E-Network/app_registry/internal/config"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

// Open returns the backend named by cfg.Driver. Backends that hold
// connections also implement storage.Closer.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (storage.CollectionStore, error) {
	if log == nil {
		log = logger.NewDefault("storage")
	}
	entry := log.Named("storage").WithField("driver", cfg.Driver)

	switch cfg.Driver {
	case config.DriverFile, "":
		store, err := jsonfile.New(cfg.DataFile)
		if err != nil {
			return nil, err
		}
		entry.WithField("path", store.Path()).Info("using JSON file storage")
		return store, nil

	case config.DriverMemory:
		entry.Warn("using in-memory storage; changes are lost on exit")
		return memory.NewWithApps(nil), nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.Document)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := postgres.Migrate(store.DB().DB); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
		entry.Info("using postgres storage")
		return store, nil

	case config.DriverRedis:
		store, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Document)
		if err != nil {
			return nil, err
		}
		entry.WithField("key", store.Key()).Info("using redis storage")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close releases the backend if it holds resources.
func Close(store storage.CollectionStore) error {
	if c, ok := store.(storage.Closer); ok {
		return c.Close()
	}
	return nil
}
