package config

import (
	"fmt"
	"net/url"
	"time"
)

// Backend connection modes.
const (
	ModeAuto    = "auto"
	ModeRemote  = "remote"
	ModeLocal   = "local"
	ModeOffline = "offline"
)

// BackendConfig describes how to reach the knowledge-assistant backend.
type BackendConfig struct {
	// Mode selects the connection strategy: auto, remote, local, or offline.
	// Auto probes remote first and degrades from there.
	Mode string `yaml:"mode,omitempty"`

	// Endpoint is the base URL of the remote RPC backend.
	Endpoint string `yaml:"endpoint,omitempty"`

	// HealthTimeout bounds the initialization health probe.
	HealthTimeout time.Duration `yaml:"health_timeout,omitempty"`

	// RequestTimeout bounds each RPC call.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// SetDefaults sets default values for BackendConfig.
func (c *BackendConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// Validate validates the BackendConfig.
func (c *BackendConfig) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeRemote, ModeLocal, ModeOffline:
	default:
		return fmt.Errorf("invalid backend.mode '%s', must be auto, remote, local, or offline", c.Mode)
	}

	if (c.Mode == ModeAuto || c.Mode == ModeRemote) && c.Endpoint == "" {
		return fmt.Errorf("backend.endpoint is required for mode '%s'", c.Mode)
	}
	if c.Endpoint != "" {
		if _, err := url.ParseRequestURI(c.Endpoint); err != nil {
			return fmt.Errorf("invalid backend.endpoint '%s': %w", c.Endpoint, err)
		}
	}
	if c.HealthTimeout < 0 {
		return fmt.Errorf("backend.health_timeout must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("backend.request_timeout must be positive")
	}
	return nil
}

// NotebookConfig describes a knowledge source the backend can answer against.
type NotebookConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name,omitempty"`
	URL         string   `yaml:"url,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Topics      []string `yaml:"topics,omitempty"`

	// Active marks this notebook as the default target for calls that
	// omit an explicit notebook id. At most one may be active.
	Active bool `yaml:"active,omitempty"`
}

// Validate validates a NotebookConfig.
func (c *NotebookConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("notebook id is required")
	}
	return nil
}
