package pipeline

import (
	"context"

	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// replyToGreeting writes a conversational reply onto a greeting message.
// The reply is generated against the sender's recent history so follow-up
// questions keep their context.
func (p *Pipeline) replyToGreeting(ctx context.Context, msg *models.Message) error {
	msg.Reply = p.chatReply(ctx, msg)
	msg.MessageType = models.TypeGreeting
	msg.Processed = true
	msg.Status = models.StatusProcessed
	if err := p.store.UpdateMessage(ctx, msg); err != nil {
		return err
	}

	p.logger.Info().Str("mid", msg.ID).Str("sender", msg.Sender).Msg("greeting reply written")
	return nil
}

func (p *Pipeline) chatReply(ctx context.Context, msg *models.Message) string {
	history, err := p.store.ListRecentMessagesBySender(ctx, msg.Sender, p.opts.HistoryLimit)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("load sender history failed")
		history = nil
	}

	client, err := p.client(ctx, msg.Sender)
	if err != nil {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("llm client unavailable for chat")
		metrics.LLMFailures.WithLabelValues("chat").Inc()
		return greetingFallback
	}

	reply, err := client.ChatReply(ctx, msg.Content, history)
	if err != nil || reply == "" {
		p.logger.Error().Err(err).Str("mid", msg.ID).Msg("chat reply failed, using fallback")
		metrics.LLMFailures.WithLabelValues("chat").Inc()
		return greetingFallback
	}
	return reply
}
