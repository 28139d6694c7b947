package cache

import (
	"fmt"

	"github.com/coursekit/aigateway/pkg/config"
)

// NewFromConfig builds a cache Store from configuration.
// Returns nil when caching is disabled; the gateway treats a nil store
// as a permanent miss.
func NewFromConfig(cfg *config.CacheConfig, pool *config.DBPool) (Store, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	switch cfg.Backend {
	case "sql":
		if pool == nil {
			return nil, fmt.Errorf("cache backend 'sql' requires a database pool")
		}
		db, err := pool.Get(cfg.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		return NewSQLStore(db, cfg.SQL.Driver)
	default:
		return NewMemoryStore(), nil
	}
}
