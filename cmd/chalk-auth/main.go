package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/chalk-edu/chalk/internal/auth"
	"github.com/chalk-edu/chalk/internal/cache"
	"github.com/chalk-edu/chalk/internal/config"
	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/repositories/mongodb"
	"github.com/chalk-edu/chalk/internal/utils"
	"github.com/chalk-edu/chalk/internal/validator"
	"github.com/chalk-edu/chalk/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})).With("service", "chalk-auth")
	logger := utils.NewSlogLogger(slogLogger)

	mongoDB, err := pkg.NewMongoDatabase(context.Background(), cfg)
	if err != nil {
		log.Fatal(&auth.ConnectionError{Store: "mongodb", Err: err})
	}
	defer mongoDB.Client().Disconnect(context.Background())

	users := mongodb.NewUserMongo(mongoDB)
	sessions := mongodb.NewSessionMongo(mongoDB)
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.EnsureIndexes(indexCtx); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}
	if err := sessions.EnsureIndexes(indexCtx); err != nil {
		log.Fatalf("Failed to create session indexes: %v", err)
	}
	cancelIndex()

	// Redis is optional; without it logged-out tokens stay valid until expiry
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, session revocation disabled", "error", err)
			redisClient = nil
		}
	}
	revoked := cache.NewRevocationList(cache.NewCacheManager(redisClient))

	publisher, err := events.NewEventPublisher(cfg.KafkaBrokers, cfg.EventsTopic, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	svc := auth.NewService(
		users,
		sessions,
		revoked,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		publisher,
		validator.New(),
		slogLogger,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := auth.NewRouter(svc, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.AuthPort),
		Handler: router,
	}

	go func() {
		logger.Info("Starting auth server", "port", cfg.AuthPort, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start auth server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down auth server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Auth server forced to shutdown", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Auth server exited")
}
