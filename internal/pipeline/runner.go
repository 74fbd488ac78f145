package pipeline

import (
	"context"
	"time"

	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// RunTasks executes pending tasks for every platform that has a
// registered executor.
func (p *Pipeline) RunTasks(ctx context.Context) {
	for platform := range p.execs {
		p.runPlatform(ctx, platform)
	}
}

func (p *Pipeline) runPlatform(ctx context.Context, platform models.Platform) {
	tasks, err := p.store.ListTasksByStatus(ctx, platform, models.TaskPending)
	if err != nil {
		p.logger.Error().Err(err).Str("platform", string(platform)).Msg("list pending tasks failed")
		return
	}
	if len(tasks) == 0 {
		return
	}
	p.logger.Info().Str("platform", string(platform)).Int("count", len(tasks)).Msg("executing pending tasks")

	for i := range tasks {
		if err := p.executeOne(ctx, &tasks[i]); err != nil {
			p.logger.Error().Err(err).Str("task_id", tasks[i].ID).Msg("task execution failed")
		}
	}
}

// executeOne runs one task under its TTL lock, classifies the executor's
// result and persists the outcome. A lost lock or a stale status means
// another worker owns the task; both are silent skips.
func (p *Pipeline) executeOne(ctx context.Context, task *models.Task) error {
	key := lock.TaskKey(task.Platform, task.ID)
	acquired, err := p.locker.Acquire(ctx, key, p.opts.TaskLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		metrics.LockContention.WithLabelValues("task").Inc()
		return nil
	}
	defer p.locker.Release(ctx, key)

	// Re-fetch under the lock: the listing may be stale by the time the
	// lock is held.
	current, err := p.store.GetTask(ctx, task.Platform, task.ID)
	if err != nil {
		return err
	}
	if current == nil || current.Status != models.TaskPending {
		return nil
	}
	task = current

	exec, ok := p.execs.For(task.Platform)
	if !ok {
		p.logger.Warn().Str("task_id", task.ID).Str("platform", string(task.Platform)).Msg("no executor registered")
		return nil
	}

	input := task.Title
	if task.Description != "" {
		input = task.Title + ": " + task.Description
	}

	started := p.now()
	result, execErr := exec.Execute(ctx, input)
	metrics.TaskDuration.WithLabelValues(string(task.Platform)).Observe(time.Since(started).Seconds())

	status, reply := p.resolveOutcome(ctx, task, result, execErr)

	task.Status = status
	task.Reply = reply
	if status.Terminal() {
		done := p.now()
		task.CompletionDate = &done
	}
	if err := p.store.UpdateTask(ctx, task); err != nil {
		return err
	}

	metrics.TasksExecuted.WithLabelValues(string(task.Platform), string(status)).Inc()
	p.logger.Info().
		Str("task_id", task.ID).
		Str("mid", task.MessageID).
		Str("platform", string(task.Platform)).
		Str("status", string(status)).
		Msg("task executed")
	return nil
}

// resolveOutcome turns the raw executor result into a task status and a
// reply. Executor errors fail the task with the error text as the reply;
// otherwise the verifier classifies the result, defaulting to pending so
// an unreadable verdict gets the task re-executed rather than silently
// marked done. A task left pending carries no reply: the reply field is
// the synthesizer's completion signal.
func (p *Pipeline) resolveOutcome(ctx context.Context, task *models.Task, result string, execErr error) (models.TaskStatus, string) {
	if execErr != nil {
		p.logger.Error().Err(execErr).Str("task_id", task.ID).Msg("executor returned error")
		return models.TaskFailed, execErr.Error()
	}

	// Verification has no per-sender context, use the shared client.
	client, err := p.client(ctx, "")
	if err != nil {
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("llm client unavailable for verification")
		metrics.LLMFailures.WithLabelValues("verify").Inc()
		return models.TaskPending, ""
	}

	status, err := client.VerifyResult(ctx, task.Platform, result)
	if err != nil {
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("result verification failed")
		metrics.LLMFailures.WithLabelValues("verify").Inc()
		return models.TaskPending, ""
	}
	if status == models.TaskPending {
		p.logger.Warn().Str("task_id", task.ID).Msg("ambiguous executor result, task stays pending")
		return models.TaskPending, ""
	}
	return status, result
}
