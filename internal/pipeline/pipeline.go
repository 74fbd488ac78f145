// Package pipeline implements the message lifecycle state machine:
// classification, task extraction, task execution, reply synthesis and
// reply delivery, coordinated across independently scheduled workers that
// share state only through the persisted message and task records.
//
// Every batch method isolates failures per item: one bad message or task
// is logged and skipped, never aborts the batch. Concurrent workers are
// expected; claims go through the store's conditional status transitions
// and the TTL lock, and losing a claim is a skip, not an error.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/haider984/codsy/internal/auth"
	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/executor"
	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/models"
	"github.com/haider984/codsy/internal/store"
)

// User-facing fallback texts. The pipeline's failure policy is that a
// message always ends with some reply rather than an exception surface.
const (
	noTasksReply     = "Sorry, I can't help with that right now — but I'm happy to answer another question!"
	mergeFallback    = "An error occurred while generating a response for your message."
	greetingFallback = "I received your message. How can I assist you further?"
)

// Options tunes the pipeline's waits and locks.
type Options struct {
	// SynthesizerMaxWait bounds how long one synthesis attempt polls for
	// task completion before abandoning the message for this cycle.
	SynthesizerMaxWait time.Duration
	// SynthesizerRecheck is the poll interval inside that wait.
	SynthesizerRecheck time.Duration
	// TaskLockTTL bounds task lock leakage after a worker crash.
	TaskLockTTL time.Duration
	// HistoryLimit caps the conversation history fed to the greeting
	// handler.
	HistoryLimit int
}

func (o *Options) applyDefaults() {
	if o.SynthesizerMaxWait <= 0 {
		o.SynthesizerMaxWait = 300 * time.Second
	}
	if o.SynthesizerRecheck <= 0 {
		o.SynthesizerRecheck = 5 * time.Second
	}
	if o.TaskLockTTL <= 0 {
		o.TaskLockTTL = lock.DefaultTTL
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 20
	}
}

// Pipeline carries the collaborators shared by all stages.
type Pipeline struct {
	store    store.DataStore
	locker   lock.Locker
	llm      *llm.Factory
	adapters map[models.Source]channel.Adapter
	execs    executor.Registry
	auth     auth.Authorizer
	logger   zerolog.Logger
	opts     Options

	// Poller dedup, see RunPoll.
	seenIDs map[string]struct{}

	// Injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a pipeline.
func New(
	dataStore store.DataStore,
	locker lock.Locker,
	factory *llm.Factory,
	adapters []channel.Adapter,
	execs executor.Registry,
	authorizer auth.Authorizer,
	logger zerolog.Logger,
	opts Options,
) *Pipeline {
	opts.applyDefaults()

	bySource := make(map[models.Source]channel.Adapter, len(adapters))
	for _, a := range adapters {
		bySource[a.Source()] = a
	}

	return &Pipeline{
		store:    dataStore,
		locker:   locker,
		llm:      factory,
		adapters: bySource,
		execs:    execs,
		auth:     authorizer,
		logger:   logger,
		opts:     opts,
		seenIDs:  make(map[string]struct{}),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// client resolves the LLM client for a sender identity.
func (p *Pipeline) client(ctx context.Context, identity string) (llm.Client, error) {
	return p.llm.Get(ctx, identity)
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
