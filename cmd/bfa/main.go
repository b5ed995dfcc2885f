package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/config"
	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/handler"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/cache"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/client"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/observability"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/resilience"
	"github.com/boddenberg/mfi-statements-bfa/internal/jobs"
	"github.com/boddenberg/mfi-statements-bfa/internal/port"
	"github.com/boddenberg/mfi-statements-bfa/internal/service"
	"github.com/boddenberg/mfi-statements-bfa/internal/statement"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_api_url", cfg.BackendAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("redis_cache", cfg.RedisURL != ""),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("auth_enabled", cfg.JWTSecret != "" || len(cfg.APIKeys) > 0),
		zap.Bool("digest_enabled", cfg.DigestEnabled),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("backend-api")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	backend := client.NewBackendClient(httpClient, cfg.BackendAPIURL, cfg.BackendAPIToken, cb, resilienceCfg)
	probes := []handler.Probe{{Name: "backend", Checker: backend}}

	// --- Cache ---
	var (
		accountCache    port.Cache[domain.AccountSnapshot]
		collectionCache port.Cache[[]domain.CollectionRecord]
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		defer rdb.Close()

		redisAccounts := cache.NewRedis[domain.AccountSnapshot](rdb, "mfi:account:", cfg.CacheTTL, logger)
		accountCache = redisAccounts
		collectionCache = cache.NewRedis[[]domain.CollectionRecord](rdb, "mfi:collections:", cfg.CacheTTL, logger)
		probes = append(probes, handler.Probe{Name: "redis", Checker: redisAccounts})
		logger.Info("using Redis cache")
	} else {
		memAccounts := cache.New[domain.AccountSnapshot](cfg.CacheTTL)
		memCollections := cache.New[[]domain.CollectionRecord](cfg.CacheTTL)
		defer memAccounts.Close()
		defer memCollections.Close()
		accountCache = memAccounts
		collectionCache = memCollections
		logger.Info("using in-memory cache")
	}

	// --- Statements ---
	var renderer statement.Renderer
	if cfg.StatementFontPath != "" {
		font, err := os.ReadFile(cfg.StatementFontPath)
		if err != nil {
			logger.Warn("statement font not loaded, non-Latin names will use a placeholder",
				zap.String("path", cfg.StatementFontPath), zap.Error(err))
		} else {
			renderer.UTF8Font = font
		}
	}

	// --- Services ---
	reportSvc := service.NewReportService(service.Deps{
		Accounts:        backend,
		Collections:     backend,
		Officers:        backend,
		AccountCache:    accountCache,
		CollectionCache: collectionCache,
		Metrics:         metrics,
		Logger:          logger,
		Bulkhead:        resilience.NewBulkhead(resilienceCfg.MaxConcurrency),
		Currency:        cfg.CurrencySymbol,
		Renderer:        renderer,
	})

	// --- Jobs ---
	var digest *jobs.DailyDigest
	if cfg.DigestEnabled {
		digest, err = jobs.NewDailyDigest(reportSvc, cfg.DigestSchedule, metrics, logger)
		if err != nil {
			logger.Fatal("failed to schedule daily digest", zap.Error(err))
		}
		digest.Start()
		logger.Info("daily digest scheduled",
			zap.String("schedule", cfg.DigestSchedule),
			zap.Time("next_run", digest.Next()),
		)
	}

	// --- Router ---
	router := handler.NewRouter(reportSvc, probes, handler.NewTokenValidator(cfg.JWTSecret, cfg.APIKeys...), metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if digest != nil {
		digest.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
