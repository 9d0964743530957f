package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finworks/capflow-backend/internal/adapter/cache"
	"github.com/finworks/capflow-backend/internal/adapter/httpapi"
	"github.com/finworks/capflow-backend/internal/adapter/repository/memory"
	"github.com/finworks/capflow-backend/internal/adapter/repository/postgres"
	"github.com/finworks/capflow-backend/internal/config"
	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/observability"
	"github.com/finworks/capflow-backend/internal/usecase/planner"
	"github.com/finworks/capflow-backend/internal/usecase/recommend"
	"github.com/finworks/capflow-backend/internal/usecase/seeder"
)

const serviceVersion = "1.0.0"

func main() {
	ctx := context.Background()

	// 1. Configuration, logging and telemetry
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	obs, err := observability.New(ctx, observability.Config{
		ServiceName:    "capflow-engine",
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}

	// 2. Stores: Postgres when configured, a seeded in-memory book otherwise
	var (
		cpRepo domain.CounterpartyRepository
		obRepo domain.ObligationRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure database schema: %v", err)
		}
		cpRepo = postgres.NewCounterpartyRepository(db)
		obRepo = postgres.NewObligationRepository(db)
		logger.Info("using postgres store")
	} else {
		memCP := memory.NewCounterpartyRepository()
		memOB := memory.NewObligationRepository()
		if err := seeder.NewSampleSeeder(memCP, memOB).Seed(ctx, time.Now()); err != nil {
			log.Fatalf("Failed to seed sample data: %v", err)
		}
		cpRepo, obRepo = memCP, memOB
		logger.Info("using seeded in-memory store")
	}

	// 3. Result cache: Redis when configured and reachable
	var resultCache domain.ResultCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory cache", "error", err)
			resultCache = cache.NewMemoryCache()
		} else {
			defer redisCache.Close()
			resultCache = redisCache
			logger.Info("using redis result cache", "addr", cfg.RedisAddr)
		}
	} else {
		resultCache = cache.NewMemoryCache()
	}

	// 4. Scenario profiles and services
	profiles, err := config.LoadProfiles(cfg.ScenarioProfiles)
	if err != nil {
		log.Fatalf("Failed to load scenario profiles: %v", err)
	}

	plannerService := planner.NewService(cpRepo, obRepo, resultCache)
	recommendService := recommend.NewService(obRepo, 0)

	// 5. HTTP server with graceful shutdown
	var limiter *httpapi.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpapi.NewRateLimiter(cfg.RateLimitRPS, time.Second)
		defer limiter.Stop()
	}

	api := httpapi.NewServer(httpapi.Options{
		Planner:        plannerService,
		Recommender:    recommendService,
		Profiles:       profiles,
		DefaultBalance: cfg.DefaultCashBalance,
		APIToken:       cfg.APIToken,
		Logger:         logger,
		Observability:  obs,
		RateLimiter:    limiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("http server failed", "error", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability shutdown failed", "error", err)
	}
	logger.Info("server exited")
}
