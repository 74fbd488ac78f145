package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/haider984/codsy/internal/api"
	"github.com/haider984/codsy/internal/auth"
	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/config"
	"github.com/haider984/codsy/internal/executor"
	"github.com/haider984/codsy/internal/handlers"
	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/pipeline"
	"github.com/haider984/codsy/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize store
	dataStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store connection failed")
	}
	defer dataStore.Close()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("store connected")

	// Initialize locks (Redis in multi-worker deployments)
	var (
		locker      lock.Locker
		redisClient *redis.Client
		lockPinger  handlers.Pinger
	)
	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedisLock(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisLock.Close()
		locker = redisLock
		redisClient = redisLock.Client()
		lockPinger = redisLock
		logger.Info().Msg("connected to Redis")
	} else {
		locker = lock.NewMemoryLock()
		logger.Warn().Msg("REDIS_URL not set, using in-process locks")
	}

	// The API only ingests; the pipeline instance exists for the Slack
	// event endpoint and shares the worker's claim semantics.
	pipe := pipeline.New(
		dataStore,
		locker,
		llmFactory(cfg),
		[]channel.Adapter{},
		executor.Registry{},
		auth.NewAllowlist(cfg.AllowedSenders),
		logger,
		pipeline.Options{},
	)

	h := handlers.NewHandler(dataStore, pipe, lockPinger)
	router := api.NewRouter(logger, h, redisClient, cfg.APIToken)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting codsy API server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// openStore selects the storage backend from configuration.
func openStore(ctx context.Context, cfg *config.Config) (store.DataStore, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
}

// llmFactory builds the Gemini client factory. Without an API key the
// factory errors on use and every pipeline stage falls back to its safe
// default.
func llmFactory(cfg *config.Config) *llm.Factory {
	return llm.NewFactory(func(ctx context.Context, identity string) (llm.Client, error) {
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	})
}
