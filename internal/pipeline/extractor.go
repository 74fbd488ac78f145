package pipeline

import (
	"context"

	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// extractAndPost decomposes a transcript/instructions message into tasks
// and persists them, returning the number of tasks posted. Zero tasks is a
// valid outcome: the message immediately gets the fallback reply instead
// of waiting on the synthesizer forever.
func (p *Pipeline) extractAndPost(ctx context.Context, msg *models.Message) (int, error) {
	// Idempotence gate: tasks were already created for this message.
	existing, err := p.store.CountTasksByMessage(ctx, msg.ID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	specs := p.extractSpecs(ctx, msg)

	if len(specs) == 0 {
		p.logger.Info().Str("mid", msg.ID).Msg("no tasks found, writing fallback reply")
		msg.Reply = noTasksReply
		return 0, p.store.UpdateMessage(ctx, msg)
	}

	posted := 0
	for _, spec := range specs {
		task := &models.Task{
			MessageID:   msg.ID,
			Platform:    spec.Platform,
			Title:       spec.Title,
			Description: spec.Description,
			Status:      models.TaskPending,
			Reply:       "",
		}
		if err := p.store.CreateTask(ctx, task); err != nil {
			p.logger.Error().Err(err).Str("mid", msg.ID).Str("title", spec.Title).Msg("create task failed")
			continue
		}
		metrics.TasksExtracted.WithLabelValues(string(spec.Platform)).Inc()
		p.logger.Info().
			Str("mid", msg.ID).
			Str("task_id", task.ID).
			Str("platform", string(spec.Platform)).
			Str("title", spec.Title).
			Msg("task posted")
		posted++
	}

	if posted == 0 && len(specs) > 0 {
		// Every create failed; leave the message reply-less so the next
		// classifier cycle does not re-extract (processed is set) and an
		// operator can inspect it.
		p.logger.Error().Str("mid", msg.ID).Int("specs", len(specs)).Msg("no tasks could be posted")
	}

	return posted, nil
}

// extractSpecs runs the decomposition model. Failures and malformed output
// resolve to an empty list, never an error.
func (p *Pipeline) extractSpecs(ctx context.Context, msg *models.Message) []llm.TaskSpec {
	client, err := p.client(ctx, msg.Sender)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("llm client unavailable for extraction")
		metrics.LLMFailures.WithLabelValues("extract").Inc()
		return nil
	}

	specs, err := client.ExtractTasks(ctx, msg.Content)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("task extraction failed")
		metrics.LLMFailures.WithLabelValues("extract").Inc()
		return nil
	}
	return specs
}
