package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finworks/capflow-backend/internal/adapter/cache"
	"github.com/finworks/capflow-backend/internal/adapter/mcp"
	"github.com/finworks/capflow-backend/internal/adapter/repository/memory"
	"github.com/finworks/capflow-backend/internal/adapter/repository/postgres"
	"github.com/finworks/capflow-backend/internal/config"
	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/observability"
	"github.com/finworks/capflow-backend/internal/usecase/planner"
	"github.com/finworks/capflow-backend/internal/usecase/recommend"
	"github.com/finworks/capflow-backend/internal/usecase/seeder"
)

func main() {
	// Protocol traffic owns stdout; everything else goes to stderr.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

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
	} else {
		memCP := memory.NewCounterpartyRepository()
		memOB := memory.NewObligationRepository()
		if err := seeder.NewSampleSeeder(memCP, memOB).Seed(ctx, time.Now()); err != nil {
			log.Fatalf("Failed to seed sample data: %v", err)
		}
		cpRepo, obRepo = memCP, memOB
	}

	var resultCache domain.ResultCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory cache", "error", err)
			resultCache = cache.NewMemoryCache()
		} else {
			defer redisCache.Close()
			resultCache = redisCache
		}
	} else {
		resultCache = cache.NewMemoryCache()
	}

	profiles, err := config.LoadProfiles(cfg.ScenarioProfiles)
	if err != nil {
		log.Fatalf("Failed to load scenario profiles: %v", err)
	}

	plannerService := planner.NewService(cpRepo, obRepo, resultCache)
	recommendService := recommend.NewService(obRepo, 0)

	srv := mcp.NewServer(plannerService, recommendService, profiles, cfg.DefaultCashBalance)
	logger.Info("mcp server ready on stdio")
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("MCP server error: %v", err)
	}
}
