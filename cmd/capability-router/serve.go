package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sophia-ai/capability-router/internal/config"
	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/handler"
	"github.com/sophia-ai/capability-router/internal/infra/cache"
	"github.com/sophia-ai/capability-router/internal/infra/client"
	"github.com/sophia-ai/capability-router/internal/infra/healthfeed"
	"github.com/sophia-ai/capability-router/internal/infra/observability"
	"github.com/sophia-ai/capability-router/internal/infra/resilience"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runServer wires the router and serves until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("registry_file", cfg.RegistryFile),
		zap.String("health_source", cfg.HealthSource),
		zap.Duration("probe_interval", cfg.HealthProbeInterval),
		zap.Duration("probe_timeout", cfg.HealthProbeTimeout),
		zap.Duration("health_ttl", cfg.HealthTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("otel_enabled", cfg.OTelEnabled),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.TracingEndpoint(), "capability-router")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Registry ---
	reg, err := config.LoadRegistry(cfg.RegistryFile)
	if err != nil {
		return err
	}
	router := service.NewCapabilityRouter(reg.Capabilities, metrics, logger)
	logger.Info("registry loaded",
		zap.Int("servers", len(router.Servers())),
		zap.Int("capability_records", len(reg.Capabilities)),
		zap.Int("probe_endpoints", len(reg.Endpoints)),
	)

	// --- Admin auth ---
	auth := service.NewTokenAuthority(cfg.JWTSecret, cfg.JWTTTL)
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET not set: admin endpoints are unauthenticated")
	}

	// --- Health source ---
	breakers := resilience.NewBreakerSet()
	g, gctx := errgroup.WithContext(ctx)

	switch cfg.HealthSource {
	case config.HealthSourceProbe:
		qdrantProber := client.NewQdrantProber(cfg.QdrantAPIKey)
		defer qdrantProber.Close()

		probers := client.NewProberSet().
			Register(domain.EndpointHTTP, client.NewHTTPProber(&http.Client{Timeout: cfg.HealthProbeTimeout})).
			Register(domain.EndpointMCP, client.NewMCPProber("capability-router", version)).
			Register(domain.EndpointQdrant, qdrantProber)

		healthCache := cache.New[domain.ServerHealth](cfg.HealthTTL)
		defer healthCache.Close()

		monitor := service.NewHealthMonitor(probers, router, healthCache, breakers, metrics, logger,
			service.HealthMonitorConfig{
				Interval:        cfg.HealthProbeInterval,
				Timeout:         cfg.HealthProbeTimeout,
				DegradedLatency: cfg.HealthDegradedLatency,
				Retry: resilience.Config{
					MaxRetries:     cfg.MaxRetries,
					InitialBackoff: cfg.InitialBackoff,
					MaxConcurrency: cfg.MaxConcurrency,
				},
			},
		)
		for _, ep := range reg.Endpoints {
			monitor.SetEndpoint(ep)
		}
		g.Go(func() error {
			monitor.Run(gctx)
			return nil
		})

	case config.HealthSourceRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		feed := healthfeed.NewRedisFeed(rdb, cfg.RedisHealthChannel, router, metrics, logger)
		g.Go(func() error {
			feed.Run(gctx)
			return nil
		})

	default:
		logger.Info("no health source: health is set via PUT /v1/health only")
	}

	// --- HTTP ---
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.NewRouter(handler.Deps{
			Router:   router,
			Auth:     auth,
			Breakers: breakers,
			Metrics:  metrics,
			Logger:   logger,
			Version:  version,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
