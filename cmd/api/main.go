package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/database"
	"bookstore/internal/events"
	"bookstore/internal/logger"
	"bookstore/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

func newPublisher(cfg config.RabbitMQConfig, log *zap.Logger) events.Publisher {
	if cfg.URL == "" {
		log.Info("RabbitMQ not configured, order events disabled")
		return events.NopPublisher{}
	}

	publisher, err := events.NewRabbitPublisher(cfg.URL, cfg.Exchange, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ, order events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return publisher
}

func newRedisClient(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// rate limiting fails open until redis becomes reachable
		log.Warn("Redis unreachable", zap.String("addr", cfg.Addr()), zap.Error(err))
	}
	return client
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting bookstore API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	health := dbService.Health()
	log.Info("Database health check", zap.Any("health", health))

	if err := database.RunMigrations(dbService.DB(), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	srv, err := server.NewServer(cfg, log, dbService, newRedisClient(cfg.Redis, log), newPublisher(cfg.RabbitMQ, log))
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Bootstrap(bootstrapCtx); err != nil {
		cancel()
		log.Fatal("Startup maintenance failed", zap.Error(err))
	}
	cancel()

	done := make(chan bool, 1)

	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
