package ratelimit

import (
	"fmt"

	"github.com/coursekit/aigateway/pkg/config"
)

// NewFromConfig builds a Limiter from configuration.
// Disabled rate limiting yields an Unlimited pass-through.
func NewFromConfig(cfg *config.RateLimitConfig, pool *config.DBPool) (Limiter, error) {
	if !cfg.IsEnabled() {
		return NewUnlimited(), nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}

	var store Store
	switch cfg.Backend {
	case "sql":
		if pool == nil {
			return nil, fmt.Errorf("rate limit backend 'sql' requires a database pool")
		}
		db, err := pool.Get(cfg.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to open rate limit database: %w", err)
		}
		store, err = NewSQLStore(db, cfg.SQL.Driver)
		if err != nil {
			return nil, err
		}
	default:
		store = NewMemoryStore()
	}

	return NewFixedWindow(cfg.MaxRequests, cfg.Window, store)
}
