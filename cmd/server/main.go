// @title        SentryDesk Access System API
// @version      1.0
// @description  Role-gated authentication and portal API.
// @BasePath     /
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentrydesk/access-system/internal/api"
	"github.com/sentrydesk/access-system/internal/api/metrics"
	"github.com/sentrydesk/access-system/internal/core/service"
	"github.com/sentrydesk/access-system/internal/infrastructure/config"
	mongodb "github.com/sentrydesk/access-system/internal/infrastructure/db/mongo"
	redisdb "github.com/sentrydesk/access-system/internal/infrastructure/db/redis"
	"github.com/sentrydesk/access-system/internal/infrastructure/identity"
	"github.com/sentrydesk/access-system/internal/infrastructure/queue"
	"github.com/sentrydesk/access-system/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	// --- Identity provider ---
	accounts := mongodb.NewAccountRepository(db)
	sessionStore := redisdb.NewSessionStore(rdb)
	provider := identity.NewProvider(accounts, sessionStore, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger.Component("identity"))

	// --- Profile store and background writes ---
	profiles := mongodb.NewProfileRepository(db)
	stamps := queue.NewDispatcher(0, profiles, logger.Component("queue"))
	stamps.Start(ctx)

	limiter := redisdb.NewLoginLimiter(rdb, cfg.Auth.MaxLoginFailures, cfg.Auth.LockoutWindow)

	// --- Session manager ---
	var demo *service.DemoDirectory
	if cfg.Auth.DemoMode {
		demo = service.NewDemoDirectory(service.DefaultDemoCredentials())
		if err := mongodb.SeedProfiles(ctx, profiles, service.DemoProfiles(time.Now().UTC()), log); err != nil {
			log.Fatal().Err(err).Msg("demo profile seeding failed")
		}
		log.Warn().Msg("demo mode enabled: hard-coded demo credentials are active")
	}

	manager := service.NewSessionManager(provider, profiles, stamps, limiter, demo, logger.Component("session"))
	manager.Start(ctx)
	defer manager.Close()

	if manager.Snapshot().IsAuthenticated {
		metrics.SessionRestoresTotal.Inc()
		log.Info().Msg("session restored from previous run")
	}

	// --- HTTP ---
	e := api.NewRouter(db, rdb, manager, cfg.Auth.JWTSecret, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("access system started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
