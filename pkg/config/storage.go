package config

import (
	"fmt"
	"time"
)

// SQLConfig configures a SQL database connection for one of the stores.
// Supported drivers: sqlite, postgres, mysql.
type SQLConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns,omitempty"`
	MaxIdle  int    `yaml:"max_idle,omitempty"`
}

// SetDefaults sets default values for SQLConfig.
func (c *SQLConfig) SetDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 2
	}
}

// Validate validates the SQLConfig.
func (c *SQLConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported driver '%s' (supported: sqlite, postgres, mysql)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}

// DriverName maps the configured driver to the database/sql driver name.
func (c *SQLConfig) DriverName() string {
	if c.Driver == "sqlite" {
		return "sqlite3"
	}
	return c.Driver
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Enabled controls whether responses are cached at all.
	Enabled *bool `yaml:"enabled,omitempty"`

	// TTL is how long cached responses stay fresh.
	TTL time.Duration `yaml:"ttl,omitempty"`

	// Backend is the storage backend ("memory" or "sql").
	Backend string `yaml:"backend,omitempty"`

	// SQL configures the database when backend is "sql".
	SQL *SQLConfig `yaml:"sql,omitempty"`
}

// IsEnabled returns true if caching is enabled.
func (c *CacheConfig) IsEnabled() bool {
	return c != nil && (c.Enabled == nil || *c.Enabled)
}

// SetDefaults sets default values for CacheConfig.
func (c *CacheConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate validates the CacheConfig.
func (c *CacheConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if c.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.TTL)
	}
	switch c.Backend {
	case "memory":
	case "sql":
		if c.SQL == nil {
			return fmt.Errorf("cache.backend 'sql' requires a 'sql' section")
		}
		if err := c.SQL.Validate(); err != nil {
			return fmt.Errorf("cache.sql: %w", err)
		}
	default:
		return fmt.Errorf("invalid cache.backend '%s', must be 'memory' or 'sql'", c.Backend)
	}
	return nil
}

// AnalyticsConfig configures usage event recording.
type AnalyticsConfig struct {
	// Enabled controls whether events are recorded.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Backend is the storage backend ("memory" or "sql").
	Backend string `yaml:"backend,omitempty"`

	// SQL configures the database when backend is "sql".
	SQL *SQLConfig `yaml:"sql,omitempty"`
}

// IsEnabled returns true if analytics recording is enabled.
func (c *AnalyticsConfig) IsEnabled() bool {
	return c != nil && (c.Enabled == nil || *c.Enabled)
}

// SetDefaults sets default values for AnalyticsConfig.
func (c *AnalyticsConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate validates the AnalyticsConfig.
func (c *AnalyticsConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	switch c.Backend {
	case "memory":
	case "sql":
		if c.SQL == nil {
			return fmt.Errorf("analytics.backend 'sql' requires a 'sql' section")
		}
		if err := c.SQL.Validate(); err != nil {
			return fmt.Errorf("analytics.sql: %w", err)
		}
	default:
		return fmt.Errorf("invalid analytics.backend '%s', must be 'memory' or 'sql'", c.Backend)
	}
	return nil
}
