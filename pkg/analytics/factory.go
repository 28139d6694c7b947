package analytics

import (
	"fmt"

	"github.com/coursekit/aigateway/pkg/config"
)

// NewFromConfig builds a Recorder from configuration.
// Disabled analytics yields a NoopRecorder.
func NewFromConfig(cfg *config.AnalyticsConfig, pool *config.DBPool) (Recorder, error) {
	if !cfg.IsEnabled() {
		return NoopRecorder{}, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analytics config: %w", err)
	}

	switch cfg.Backend {
	case "sql":
		if pool == nil {
			return nil, fmt.Errorf("analytics backend 'sql' requires a database pool")
		}
		db, err := pool.Get(cfg.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to open analytics database: %w", err)
		}
		return NewSQLRecorder(db, cfg.SQL.Driver)
	default:
		return NewMemoryRecorder(), nil
	}
}
