// Package llm defines the model-facing contracts of the pipeline and their
// Gemini-backed implementation. Every call site that consumes model output
// goes through a parser in parse.go with an explicit safe default; a bad
// model response never blocks the pipeline.
package llm

import (
	"context"

	"github.com/haider984/codsy/internal/models"
)

// TaskSpec is one actionable task extracted from message content.
type TaskSpec struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Platform    models.Platform `json:"platform"`
}

// TaskResult pairs a task title with the executor's reply, for reply
// synthesis.
type TaskResult struct {
	Title string
	Reply string
}

// Classifier assigns one of the four message taxonomy labels.
type Classifier interface {
	Classify(ctx context.Context, content string) (models.MessageType, error)
}

// Extractor decomposes message content into zero or more task specs.
type Extractor interface {
	ExtractTasks(ctx context.Context, content string) ([]TaskSpec, error)
}

// Verifier classifies an opaque executor result into a task status.
// Executors return free-form text, not a status enum; this is the
// LLM-as-verifier pass.
type Verifier interface {
	VerifyResult(ctx context.Context, platform models.Platform, result string) (models.TaskStatus, error)
}

// Summarizer merges task results into one user-facing reply.
type Summarizer interface {
	Summarize(ctx context.Context, mid string, results []TaskResult) (string, error)
}

// Chatter produces a conversational reply for greeting messages.
type Chatter interface {
	ChatReply(ctx context.Context, content string, history []models.Message) (string, error)
}

// Client bundles every model capability the pipeline needs.
type Client interface {
	Classifier
	Extractor
	Verifier
	Summarizer
	Chatter
}
