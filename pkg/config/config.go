// Package config loads and validates gateway configuration.
//
// Configuration is YAML (JSON works too, YAML being a superset), with
// ${VAR} / ${VAR:-default} / $VAR environment expansion applied before
// decoding. Every section carries its own SetDefaults and Validate.
package config

import "fmt"

// Config is the root configuration for the AI query gateway.
type Config struct {
	Logging   LoggingConfig    `yaml:"logging,omitempty"`
	Server    ServerConfig     `yaml:"server,omitempty"`
	Backend   BackendConfig    `yaml:"backend,omitempty"`
	Notebooks []NotebookConfig `yaml:"notebooks,omitempty"`
	RateLimit RateLimitConfig  `yaml:"rate_limit,omitempty"`
	Cache     CacheConfig      `yaml:"cache,omitempty"`
	Analytics AnalyticsConfig  `yaml:"analytics,omitempty"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format is "simple" or "text".
	Format string `yaml:"format,omitempty"`

	// File is an optional log file path; empty logs to stderr.
	File string `yaml:"file,omitempty"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080".
	Address string `yaml:"address,omitempty"`

	// Metrics enables the /metrics endpoint.
	Metrics *bool `yaml:"metrics,omitempty"`
}

// SetDefaults sets default values for the root config and all sections.
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.Metrics == nil {
		c.Server.Metrics = BoolPtr(true)
	}

	c.Backend.SetDefaults()
	c.RateLimit.SetDefaults()
	c.Cache.SetDefaults()
	c.Analytics.SetDefaults()
}

// Validate validates the root config and all sections.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return err
	}

	activeCount := 0
	seen := make(map[string]bool, len(c.Notebooks))
	for i, nb := range c.Notebooks {
		if err := nb.Validate(); err != nil {
			return fmt.Errorf("notebooks[%d]: %w", i, err)
		}
		if seen[nb.ID] {
			return fmt.Errorf("notebooks[%d]: duplicate notebook id '%s'", i, nb.ID)
		}
		seen[nb.ID] = true
		if nb.Active {
			activeCount++
		}
	}
	if activeCount > 1 {
		return fmt.Errorf("at most one notebook may be active, got %d", activeCount)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Analytics.Validate()
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}
