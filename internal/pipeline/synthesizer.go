package pipeline

import (
	"context"

	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// RunSynthesize merges completed task replies into one message reply, for
// every task-bearing message that does not have its reply yet.
func (p *Pipeline) RunSynthesize(ctx context.Context) {
	messages, err := p.store.ListMessagesByStatus(ctx, models.StatusProcessed)
	if err != nil {
		p.logger.Error().Err(err).Msg("list processed messages failed")
		return
	}

	for i := range messages {
		msg := &messages[i]
		if !msg.MessageType.NeedsTasks() || msg.Reply != "" {
			continue
		}
		if err := p.trySynthesize(ctx, msg); err != nil {
			p.logger.Error().Err(err).Str("mid", msg.ID).Msg("reply synthesis failed")
		}
	}
}

// trySynthesize waits for the message's tasks to finish, claims the
// message, merges the task replies and commits the result.
//
// The wait happens BEFORE the claim: a synthesizer that gives up on a
// slow message holds nothing, so another cycle (or worker) can pick the
// message up as soon as its tasks finish.
func (p *Pipeline) trySynthesize(ctx context.Context, msg *models.Message) error {
	tasks, ready, err := p.awaitTasks(ctx, msg.ID)
	if err != nil {
		return err
	}
	if !ready {
		p.logger.Warn().
			Str("mid", msg.ID).
			Dur("waited", p.opts.SynthesizerMaxWait).
			Msg("tasks not complete, abandoning message for this cycle")
		return nil
	}

	won, err := p.store.TransitionMessageStatus(ctx, msg.ID, models.StatusProcessed, models.StatusClaiming)
	if err != nil {
		return err
	}
	if !won {
		metrics.ClaimsLost.WithLabelValues("synthesizer").Inc()
		return nil
	}

	reply := p.mergeReplies(ctx, msg, tasks)

	committed, err := p.store.CompleteMessage(ctx, msg.ID, models.StatusClaiming, models.StatusProcessed, reply)
	if err != nil {
		// Best effort revert so the message is not stranded in claiming.
		p.revertClaim(ctx, msg.ID)
		return err
	}
	if !committed {
		metrics.ClaimsLost.WithLabelValues("synthesizer").Inc()
		return nil
	}

	p.finishTasks(ctx, tasks)

	metrics.RepliesSynthesized.Inc()
	p.logger.Info().Str("mid", msg.ID).Int("tasks", len(tasks)).Msg("reply synthesized")
	return nil
}

// awaitTasks polls until every task of the message has a reply, or the
// bounded wait runs out. Returns the tasks and whether they are ready.
// A message with no tasks at all is never ready: the extractor either
// posts tasks or writes the fallback reply itself.
func (p *Pipeline) awaitTasks(ctx context.Context, mid string) ([]models.Task, bool, error) {
	deadline := p.now().Add(p.opts.SynthesizerMaxWait)
	for {
		tasks, err := p.store.ListTasksByMessage(ctx, mid)
		if err != nil {
			return nil, false, err
		}
		if len(tasks) > 0 && allReplied(tasks) {
			return tasks, true, nil
		}
		if !p.now().Before(deadline) {
			return tasks, false, nil
		}
		if err := p.sleep(ctx, p.opts.SynthesizerRecheck); err != nil {
			return nil, false, err
		}
	}
}

func allReplied(tasks []models.Task) bool {
	for i := range tasks {
		if tasks[i].Reply == "" {
			return false
		}
	}
	return true
}

// mergeReplies runs the summarizer over the task results, falling back to
// a generic reply on any model failure.
func (p *Pipeline) mergeReplies(ctx context.Context, msg *models.Message, tasks []models.Task) string {
	results := make([]llm.TaskResult, 0, len(tasks))
	for i := range tasks {
		results = append(results, llm.TaskResult{Title: tasks[i].Title, Reply: tasks[i].Reply})
	}

	client, err := p.client(ctx, msg.Sender)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("llm client unavailable for synthesis")
		metrics.LLMFailures.WithLabelValues("summarize").Inc()
		return mergeFallback
	}

	reply, err := client.Summarize(ctx, msg.ID, results)
	if err != nil || reply == "" {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("summarize failed, using fallback reply")
		metrics.LLMFailures.WithLabelValues("summarize").Inc()
		return mergeFallback
	}
	return reply
}

// finishTasks flips the message's tasks to successful after the merged
// reply is committed. Failures are logged only: the reply is already on
// the message, a stuck task status must not undo that.
func (p *Pipeline) finishTasks(ctx context.Context, tasks []models.Task) {
	for i := range tasks {
		task := tasks[i]
		if task.Status == models.TaskSuccessful {
			continue
		}
		task.Status = models.TaskSuccessful
		if task.CompletionDate == nil {
			done := p.now()
			task.CompletionDate = &done
		}
		if err := p.store.UpdateTask(ctx, &task); err != nil {
			p.logger.Error().Err(err).Str("task_id", task.ID).Msg("mark task successful failed")
		}
	}
}

// revertClaim returns a message stuck in claiming to processed.
func (p *Pipeline) revertClaim(ctx context.Context, mid string) {
	if _, err := p.store.TransitionMessageStatus(ctx, mid, models.StatusClaiming, models.StatusProcessed); err != nil {
		p.logger.Error().Err(err).Str("mid", mid).Msg("revert claiming failed")
	}
}
