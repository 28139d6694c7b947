package main

import (
	"fmt"
	"runtime/debug"
)

// ValidateCmd checks a configuration file without starting anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("validate requires --config")
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration OK\n")
	fmt.Printf("  backend mode:  %s\n", cfg.Backend.Mode)
	fmt.Printf("  notebooks:     %d\n", len(cfg.Notebooks))
	fmt.Printf("  rate limit:    %d requests / %s\n", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	fmt.Printf("  cache ttl:     %s\n", cfg.Cache.TTL)
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("aigateway version %s\n", version)
	return nil
}
