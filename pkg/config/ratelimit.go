package config

import (
	"fmt"
	"time"
)

// RateLimitConfig defines per-user rate limiting configuration.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	Enabled *bool `yaml:"enabled,omitempty"`

	// MaxRequests is the request cap per window, per identity.
	MaxRequests int64 `yaml:"max_requests,omitempty"`

	// Window is the fixed window duration.
	Window time.Duration `yaml:"window,omitempty"`

	// Backend is the storage backend ("memory" or "sql").
	Backend string `yaml:"backend,omitempty"`

	// SQL configures the database when backend is "sql".
	SQL *SQLConfig `yaml:"sql,omitempty"`
}

// IsEnabled returns true if rate limiting is enabled.
func (c *RateLimitConfig) IsEnabled() bool {
	return c != nil && (c.Enabled == nil || *c.Enabled)
}

// SetDefaults sets default values for RateLimitConfig.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 20
	}
	if c.Window == 0 {
		c.Window = time.Hour
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate validates the RateLimitConfig.
func (c *RateLimitConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.Window)
	}
	switch c.Backend {
	case "memory":
	case "sql":
		if c.SQL == nil {
			return fmt.Errorf("rate_limit.backend 'sql' requires a 'sql' section")
		}
		if err := c.SQL.Validate(); err != nil {
			return fmt.Errorf("rate_limit.sql: %w", err)
		}
	default:
		return fmt.Errorf("invalid rate_limit.backend '%s', must be 'memory' or 'sql'", c.Backend)
	}
	return nil
}
