package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/coursekit/aigateway/pkg/analytics"
	"github.com/coursekit/aigateway/pkg/backend"
	"github.com/coursekit/aigateway/pkg/cache"
	"github.com/coursekit/aigateway/pkg/config"
	"github.com/coursekit/aigateway/pkg/gateway"
	"github.com/coursekit/aigateway/pkg/logger"
	"github.com/coursekit/aigateway/pkg/ratelimit"
	"github.com/coursekit/aigateway/pkg/server"
)

const janitorInterval = 10 * time.Minute

// ServeCmd starts the gateway HTTP server.
type ServeCmd struct {
	Address string `help:"Listen address override, e.g. :8080."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	cleanup, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if c.Address != "" {
		cfg.Server.Address = c.Address
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// One pool shared by every SQL-backed component, so sqlite callers
	// do not fight over separate connections.
	pool := config.NewDBPool()
	defer pool.Close()

	limiter, err := ratelimit.NewFromConfig(&cfg.RateLimit, pool)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}
	defer limiter.Close()

	store, err := cache.NewFromConfig(&cfg.Cache, pool)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	recorder, err := analytics.NewFromConfig(&cfg.Analytics, pool)
	if err != nil {
		return fmt.Errorf("failed to create analytics recorder: %w", err)
	}
	defer recorder.Close()

	client := backend.New(cfg.Backend, cfg.Notebooks)
	if client.Initialize(ctx) {
		logger.Get().Info("gateway starting with live backend")
	} else {
		logger.Get().Warn("gateway starting degraded", "status", client.Status().Error)
	}

	var registry *prometheus.Registry
	opts := []gateway.Option{gateway.WithCacheTTL(cfg.Cache.TTL)}
	if cfg.Server.Metrics == nil || *cfg.Server.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, gateway.WithMetrics(gateway.NewMetrics(registry)))
	}

	svc := gateway.NewService(limiter, store, client, recorder, opts...)

	go janitor(ctx, limiter, store)

	var gatherer prometheus.Gatherer
	if registry != nil {
		gatherer = registry
	}
	srv := server.New(cfg.Server.Address, server.NewRouter(svc, gatherer))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Get().Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// janitor periodically evicts expired rate limit windows and cache
// entries. Correctness never depends on it; both stores expire lazily.
func janitor(ctx context.Context, limiter ratelimit.Limiter, store cache.Store) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := limiter.PurgeExpired(ctx); err != nil {
				logger.Get().Warn("rate limit purge failed", "error", err)
			}
			if store != nil {
				if err := store.PurgeExpired(ctx); err != nil {
					logger.Get().Warn("cache purge failed", "error", err)
				}
			}
		}
	}
}
