package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Storage
	StoreDriver string // "sqlite", "postgres" or "memory"
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// API
	APIToken string // bearer token required on mutating API routes

	// LLM
	GeminiAPIKey string
	GeminiModel  string

	// Authorization: senders allowed into the task pipeline.
	AllowedSenders []string

	// Microsoft Graph (email channel)
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphUserEmail    string

	// Slack channel
	SlackBotToken string

	// Opaque executors: external commands invoked with a task description.
	GitExecutorCmd  string
	JiraExecutorCmd string

	// Scheduling
	PollInterval       time.Duration
	ClassifyInterval   time.Duration
	TaskInterval       time.Duration
	SynthesizeInterval time.Duration
	DispatchInterval   time.Duration

	// Reply synthesizer completion poll
	SynthesizerMaxWait time.Duration
	SynthesizerRecheck time.Duration

	// Task execution lock
	TaskLockTTL time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		StoreDriver: getEnv("STORE", "sqlite"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "codsy.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		APIToken: os.Getenv("API_TOKEN"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),

		GraphTenantID:     os.Getenv("TENANT_ID"),
		GraphClientID:     os.Getenv("CLIENT_ID"),
		GraphClientSecret: os.Getenv("CLIENT_SECRET"),
		GraphUserEmail:    os.Getenv("USER_EMAIL"),

		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),

		GitExecutorCmd:  os.Getenv("GIT_EXECUTOR_CMD"),
		JiraExecutorCmd: os.Getenv("JIRA_EXECUTOR_CMD"),

		PollInterval:       getEnvSeconds("POLL_INTERVAL", 30),
		ClassifyInterval:   getEnvSeconds("CLASSIFY_INTERVAL", 10),
		TaskInterval:       getEnvSeconds("TASK_INTERVAL", 10),
		SynthesizeInterval: getEnvSeconds("SYNTHESIZE_INTERVAL", 10),
		DispatchInterval:   getEnvSeconds("DISPATCH_INTERVAL", 10),

		SynthesizerMaxWait: getEnvSeconds("SYNTHESIZER_MAX_WAIT", 300),
		SynthesizerRecheck: getEnvSeconds("SYNTHESIZER_RECHECK", 5),

		TaskLockTTL: getEnvSeconds("TASK_LOCK_TTL", 300),
	}

	// Parse allowed senders (comma-separated addresses or slack user ids)
	if allowed := os.Getenv("ALLOWED_SENDERS"); allowed != "" {
		for _, entry := range strings.Split(allowed, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.AllowedSenders = append(cfg.AllowedSenders, entry)
			}
		}
	}

	// In production, require the external services the pipeline depends on
	if cfg.Env == "production" {
		if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.GeminiAPIKey == "" {
			panic("GEMINI_API_KEY is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
