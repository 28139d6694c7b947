// Command aigateway runs the AI query gateway.
//
// Usage:
//
//	aigateway serve --config config.yaml
//	aigateway validate --config config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/coursekit/aigateway/pkg/config"
	"github.com/coursekit/aigateway/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the gateway HTTP server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:""`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or text)." default:""`
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("aigateway"),
		kong.Description("AI query gateway for the learning platform."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

// loadConfig reads the config file, or falls back to defaults when no
// path was given. CLI logging flags override the file's settings.
func loadConfig(cli *CLI) (*config.Config, error) {
	var cfg *config.Config
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Logging.File = cli.LogFile
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	return cfg, nil
}

// initLogger configures the process logger from config. The returned
// cleanup closes the log file, when one is used.
func initLogger(cfg *config.Config) (func(), error) {
	output := os.Stderr
	cleanup := func() {}

	if cfg.Logging.File != "" {
		file, closeFile, err := logger.OpenLogFile(cfg.Logging.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = closeFile
	}

	logger.Init(logger.ParseLevel(cfg.Logging.Level), output, cfg.Logging.Format)
	return cleanup, nil
}
