package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codsy_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_messages_ingested_total",
			Help: "Total messages persisted by the channel pollers",
		},
		[]string{"source"},
	)

	MessagesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codsy_messages_rejected_total",
			Help: "Total messages dropped by the authorization gate",
		},
	)

	MessagesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_messages_classified_total",
			Help: "Total messages classified",
		},
		[]string{"type"},
	)

	TasksExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_tasks_extracted_total",
			Help: "Total tasks created by the extractor",
		},
		[]string{"platform"},
	)

	TasksExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_tasks_executed_total",
			Help: "Total task executions by terminal status",
		},
		[]string{"platform", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codsy_task_duration_seconds",
			Help:    "Opaque executor call duration",
			Buckets: []float64{.5, 1, 5, 15, 60, 300, 600},
		},
		[]string{"platform"},
	)

	RepliesSynthesized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codsy_replies_synthesized_total",
			Help: "Total merged replies written onto messages",
		},
	)

	RepliesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_replies_dispatched_total",
			Help: "Total replies delivered to a channel",
		},
		[]string{"source"},
	)

	// Concurrency metrics
	LockContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_lock_contention_total",
			Help: "Total lock acquisitions abandoned to another worker",
		},
		[]string{"kind"},
	)

	ClaimsLost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_claims_lost_total",
			Help: "Total status claims lost to a concurrent worker",
		},
		[]string{"stage"},
	)

	// LLM metrics
	LLMFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codsy_llm_failures_total",
			Help: "Total LLM calls resolved to a safe default",
		},
		[]string{"operation"},
	)
)
