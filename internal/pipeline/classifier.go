package pipeline

import (
	"context"
	"strings"

	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// RunClassify selects unprocessed messages, classifies each and routes it
// into the rest of the pipeline.
func (p *Pipeline) RunClassify(ctx context.Context) {
	messages, err := p.store.ListMessagesByProcessed(ctx, false)
	if err != nil {
		p.logger.Error().Err(err).Msg("list unprocessed messages failed")
		return
	}
	if len(messages) == 0 {
		return
	}
	p.logger.Info().Int("count", len(messages)).Msg("classifying unprocessed messages")

	for i := range messages {
		if err := p.classifyAndRoute(ctx, &messages[i]); err != nil {
			p.logger.Error().Err(err).Str("mid", messages[i].ID).Msg("classify failed")
		}
	}
}

// classifyAndRoute assigns a message type and hands the message to the
// matching handler. Re-running on an already processed message is a no-op.
func (p *Pipeline) classifyAndRoute(ctx context.Context, msg *models.Message) error {
	if msg.Processed {
		return nil
	}

	// Claim the message. Only one classifier worker wins the
	// pending→processed transition; the loser leaves routing to the
	// winner.
	won, err := p.store.TransitionMessageStatus(ctx, msg.ID, models.StatusPending, models.StatusProcessed)
	if err != nil {
		return err
	}
	if !won {
		metrics.ClaimsLost.WithLabelValues("classifier").Inc()
		return nil
	}

	msgType := p.classifyContent(ctx, msg)

	msg.MessageType = msgType
	msg.Processed = true
	msg.Status = models.StatusProcessed
	if err := p.store.UpdateMessage(ctx, msg); err != nil {
		return err
	}

	metrics.MessagesClassified.WithLabelValues(string(msgType)).Inc()
	p.logger.Info().
		Str("mid", msg.ID).
		Str("type", string(msgType)).
		Msg("message classified")

	return p.route(ctx, msg)
}

// classifyContent resolves the message type, defaulting to greeting on
// empty content, LLM failure or an unrecognized label.
func (p *Pipeline) classifyContent(ctx context.Context, msg *models.Message) models.MessageType {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return models.TypeGreeting
	}

	client, err := p.client(ctx, msg.Sender)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("llm client unavailable, defaulting to greeting")
		metrics.LLMFailures.WithLabelValues("classify").Inc()
		return models.TypeGreeting
	}

	msgType, err := client.Classify(ctx, content)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("classification failed, defaulting to greeting")
		metrics.LLMFailures.WithLabelValues("classify").Inc()
		return models.TypeGreeting
	}
	return msgType
}

func (p *Pipeline) route(ctx context.Context, msg *models.Message) error {
	switch msg.MessageType {
	case models.TypeGreeting:
		return p.replyToGreeting(ctx, msg)
	case models.TypeTranscript, models.TypeInstructions:
		_, err := p.extractAndPost(ctx, msg)
		return err
	case models.TypeMeeting:
		// Meeting ingestion (calendar extraction) is handled outside the
		// task pipeline.
		p.logger.Info().Str("mid", msg.ID).Msg("meeting message recorded, no task routing")
		return nil
	default:
		p.logger.Warn().Str("mid", msg.ID).Str("type", string(msg.MessageType)).Msg("unknown message type")
		return nil
	}
}
