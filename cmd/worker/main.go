package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/haider984/codsy/internal/auth"
	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/config"
	"github.com/haider984/codsy/internal/executor"
	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/models"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	dataStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store connection failed")
	}
	defer dataStore.Close()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("store connected")

	// Initialize locks. Redis is required whenever more than one worker
	// runs against the same store.
	var locker lock.Locker
	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedisLock(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisLock.Close()
		locker = redisLock
		logger.Info().Msg("connected to Redis")
	} else {
		locker = lock.NewMemoryLock()
		logger.Warn().Msg("REDIS_URL not set, using in-process locks")
	}

	// Channel adapters
	var adapters []channel.Adapter
	if cfg.GraphTenantID != "" && cfg.GraphClientID != "" && cfg.GraphClientSecret != "" {
		adapters = append(adapters, channel.NewEmailAdapter(
			cfg.GraphTenantID, cfg.GraphClientID, cfg.GraphClientSecret, cfg.GraphUserEmail))
		logger.Info().Str("mailbox", cfg.GraphUserEmail).Msg("email channel enabled")
	}
	if cfg.SlackBotToken != "" {
		adapters = append(adapters, channel.NewSlackAdapter(cfg.SlackBotToken))
		logger.Info().Msg("slack channel enabled")
	}
	if len(adapters) == 0 {
		logger.Warn().Msg("no channel adapters configured, worker will only drain existing records")
	}

	// Opaque executors
	execs := executor.Registry{}
	if cfg.GitExecutorCmd != "" {
		gitExec, err := executor.NewCommandExecutor(cfg.GitExecutorCmd)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid GIT_EXECUTOR_CMD")
		}
		execs[models.PlatformGit] = gitExec
	}
	if cfg.JiraExecutorCmd != "" {
		jiraExec, err := executor.NewCommandExecutor(cfg.JiraExecutorCmd)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid JIRA_EXECUTOR_CMD")
		}
		execs[models.PlatformJira] = jiraExec
	}

	factory := llm.NewFactory(func(ctx context.Context, identity string) (llm.Client, error) {
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	})

	pipe := pipeline.New(
		dataStore,
		locker,
		factory,
		adapters,
		execs,
		auth.NewAllowlist(cfg.AllowedSenders),
		logger,
		pipeline.Options{
			SynthesizerMaxWait: cfg.SynthesizerMaxWait,
			SynthesizerRecheck: cfg.SynthesizerRecheck,
			TaskLockTTL:        cfg.TaskLockTTL,
		},
	)

	// Schedule the pipeline stages. Each stage skips its next run while a
	// previous run is still in flight; combined with the store claims and
	// TTL locks, overlapping workers stay safe.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	stages := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"poll", cfg.PollInterval, pipe.RunPoll},
		{"classify", cfg.ClassifyInterval, pipe.RunClassify},
		{"tasks", cfg.TaskInterval, pipe.RunTasks},
		{"synthesize", cfg.SynthesizeInterval, pipe.RunSynthesize},
		{"dispatch", cfg.DispatchInterval, pipe.RunDispatch},
	}
	for _, stage := range stages {
		run := stage.run
		if _, err := scheduler.AddFunc("@every "+stage.interval.String(), func() { run(ctx) }); err != nil {
			logger.Fatal().Err(err).Str("stage", stage.name).Msg("schedule failed")
		}
		logger.Info().Str("stage", stage.name).Dur("interval", stage.interval).Msg("stage scheduled")
	}

	scheduler.Start()
	logger.Info().Str("env", cfg.Env).Msg("codsy worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker...")
	cancel()

	// Let in-flight stage runs finish.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("stage runs did not finish in time")
	}

	logger.Info().Msg("worker stopped")
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
