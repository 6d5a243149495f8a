package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/loginbox/user-portal/internal/api"
	"github.com/loginbox/user-portal/internal/core/service"
	mongodb "github.com/loginbox/user-portal/internal/infrastructure/db/mongo"
	redisdb "github.com/loginbox/user-portal/internal/infrastructure/db/redis"
	"github.com/loginbox/user-portal/internal/infrastructure/queue"
	"github.com/loginbox/user-portal/internal/pkg/config"
	"github.com/loginbox/user-portal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

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
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	accounts := mongodb.NewAccountRepository(db)
	if err := accounts.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index bootstrap failed")
	}

	sessions := redisdb.NewSessionStore(rdb, cfg.SessionTTL)
	revoker := redisdb.NewRevocationList(rdb)

	// --- Services ---
	authService := service.NewAuthService(accounts, revoker, cfg.JWTSecret, cfg.TokenTTL)
	activityService := service.NewActivityService(accounts, log)

	dispatcher := queue.NewDispatcher(cfg.Workers, activityService, log)
	dispatcher.Start(ctx)

	// --- HTTP ---
	e, err := api.NewRouter(api.Deps{
		Mongo:         db,
		Redis:         rdb,
		Accounts:      accounts,
		Auth:          authService,
		Sessions:      sessions,
		Revoker:       revoker,
		Activity:      dispatcher,
		JWTSecret:     cfg.JWTSecret,
		SecureCookies: cfg.SecureCookies,
		Logger:        log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	log.Info().Msg("server stopped")
}
