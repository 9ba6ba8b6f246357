package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"globalchat/backend/internal/api/handler"
	"globalchat/backend/internal/auth"
	"globalchat/backend/internal/chathub"
	"globalchat/backend/internal/config"
	"globalchat/backend/internal/localization"
	"globalchat/backend/internal/storage"
)

func setupDependencies(ctx context.Context, cfg config.Config, log *slog.Logger) (*gorm.DB, *redis.Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	log.Info("Database and Redis connections established", "redis", cfg.RedisAddr)
	return db, rdb, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, rdb, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	store := storage.NewStorageService(db, rdb, cfg.HandleCacheTTL, log)
	if err := store.Migrate(); err != nil {
		return err
	}

	localizer, err := localization.Default()
	if err != nil {
		return err
	}

	registry := chathub.NewRegistry(log)
	var broadcaster chathub.Broadcaster = chathub.NewLocalBroadcaster(registry)
	if cfg.BroadcastBackend == config.BackendRedis {
		redisBroadcaster := chathub.NewRedisBroadcaster(rdb, registry, log)
		if err := redisBroadcaster.Start(ctx); err != nil {
			return err
		}
		broadcaster = redisBroadcaster
	}

	router := chathub.NewRouter(registry, broadcaster, store, store, localizer, log)
	hub := chathub.NewManagerService(registry, router, log)
	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	r := gin.Default()
	handler.NewHandler(hub, authenticator, store, localizer, cfg, log).RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting GlobalChat backend", "addr", server.Addr, "broadcast", cfg.BroadcastBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
