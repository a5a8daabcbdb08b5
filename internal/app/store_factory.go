package app

import (
	"fmt"

	"github.com/shrimpsizemoose/semla/internal/store"
	"github.com/shrimpsizemoose/semla/internal/store/cache"
	"github.com/shrimpsizemoose/semla/internal/store/memory"
	"github.com/shrimpsizemoose/semla/internal/store/postgres"
	"github.com/shrimpsizemoose/semla/internal/store/redisstore"
	"github.com/shrimpsizemoose/semla/internal/store/sqlite"
)

// NewStore opens the backend named by the DSN and wraps it in a read cache
// when the TTL is positive.
func NewStore(config *Config) (store.Backend, error) {
	backend, err := openBackend(config.Storage.DSN, config.Storage.MigrationsDir)
	if err != nil {
		return nil, err
	}
	if ttl := config.CacheTTL(); ttl > 0 {
		return cache.New(backend, ttl), nil
	}
	return backend, nil
}

func openBackend(dsn, migrationsDir string) (store.Backend, error) {
	switch store.DetectBackend(dsn) {
	case store.BackendPostgres:
		s, err := postgres.NewPostgresStore(dsn, migrationsDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.BackendSQLite:
		s, err := sqlite.NewSQLiteStore(store.SQLitePath(dsn), migrationsDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.BackendRedis:
		s, err := redisstore.NewStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unable to determine storage type from DSN: %s", dsn)
	}
}
