package storage

import (
	"context"
	"fmt"
	"strings"

	memkvstore "github.com/Overland-East-Bay/family-health/internal/adapters/memory/kvstore"
	postgres "github.com/Overland-East-Bay/family-health/internal/adapters/postgres"
	pgkvstore "github.com/Overland-East-Bay/family-health/internal/adapters/postgres/kvstore"
	sqlitekvstore "github.com/Overland-East-Bay/family-health/internal/adapters/sqlite/kvstore"
	"github.com/Overland-East-Bay/family-health/internal/platform/config"
	"github.com/Overland-East-Bay/family-health/internal/ports/out/kvstore"
)

// Open returns the key-value store selected by cfg and a cleanup func that
// releases it. cleanup is never nil.
func Open(ctx context.Context, cfg config.StorageConfig) (kvstore.Store, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory:
		return memkvstore.NewStore(), func() {}, nil
	case config.BackendSQLite:
		s, err := sqlitekvstore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLitePath, err)
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: 4})
		if err != nil {
			return nil, nil, err
		}
		s := pgkvstore.NewStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure kv schema: %w", err)
		}
		return s, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
