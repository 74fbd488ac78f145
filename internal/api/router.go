package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/haider984/codsy/internal/api/middleware"
	"github.com/haider984/codsy/internal/handlers"
)

// NewRouter creates and configures the HTTP router. redisClient may be
// nil, which disables rate limiting.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, redisClient *redis.Client, apiToken string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // Slack event payloads stay well under this
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, logger)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewTokenAuth(apiToken)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/events/slack", h.SlackEvents)

	// Operator routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/messages", h.ListMessages)
		r.Post("/messages", h.CreateMessage)
		r.Get("/messages/{mid}", h.GetMessage)
		r.Put("/messages/{mid}", h.UpdateMessage)
		r.Get("/messages/{mid}/tasks", h.GetMessageTasks)
		r.Get("/tasks/{platform}", h.ListTasks)
		r.Post("/tasks/{platform}", h.CreateTask)
		r.Get("/tasks/{platform}/{id}", h.GetTask)
		r.Put("/tasks/{platform}/{id}", h.UpdateTask)
		r.Get("/stats", h.Stats)
	})

	return r
}
