package pipeline

import (
	"context"
	"errors"

	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// RunDispatch delivers every ready reply back to its originating channel.
func (p *Pipeline) RunDispatch(ctx context.Context) {
	messages, err := p.store.ListMessagesByStatus(ctx, models.StatusProcessed)
	if err != nil {
		p.logger.Error().Err(err).Msg("list processed messages failed")
		return
	}

	for i := range messages {
		msg := &messages[i]
		if msg.Reply == "" {
			continue
		}
		if err := p.dispatchOne(ctx, msg); err != nil {
			p.logger.Error().Err(err).Str("mid", msg.ID).Msg("dispatch failed")
		}
	}
}

// dispatchOne sends one reply under the dispatch lock and the handling
// claim. Send failures revert the claim so the next cycle retries; the
// successful terminal state is only reached after the channel accepted
// the reply.
func (p *Pipeline) dispatchOne(ctx context.Context, msg *models.Message) error {
	key := lock.DispatchKey(msg.ID)
	acquired, err := p.locker.Acquire(ctx, key, p.opts.TaskLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		metrics.LockContention.WithLabelValues("dispatch").Inc()
		return nil
	}
	defer p.locker.Release(ctx, key)

	won, err := p.store.TransitionMessageStatus(ctx, msg.ID, models.StatusProcessed, models.StatusHandling)
	if err != nil {
		return err
	}
	if !won {
		metrics.ClaimsLost.WithLabelValues("dispatcher").Inc()
		return nil
	}

	adapter, ok := p.adapters[msg.Source]
	if !ok {
		p.revertHandling(ctx, msg.ID)
		p.logger.Error().Str("mid", msg.ID).Str("source", string(msg.Source)).Msg("no adapter for source")
		return nil
	}

	if err := adapter.SendReply(ctx, msg, msg.Reply); err != nil {
		p.revertHandling(ctx, msg.ID)
		if errors.Is(err, channel.ErrMissingRouting) {
			// Undeliverable without routing metadata; retrying will not
			// help, but the record stays inspectable in processed.
			p.logger.Warn().Str("mid", msg.ID).Msg("reply has no routing metadata, cannot deliver")
			return nil
		}
		return err
	}

	committed, err := p.store.CompleteMessage(ctx, msg.ID, models.StatusHandling, models.StatusSuccessful, msg.Reply)
	if err != nil {
		return err
	}
	if !committed {
		metrics.ClaimsLost.WithLabelValues("dispatcher").Inc()
		return nil
	}

	metrics.RepliesDispatched.WithLabelValues(string(msg.Source)).Inc()
	p.logger.Info().
		Str("mid", msg.ID).
		Str("source", string(msg.Source)).
		Str("sender", msg.Sender).
		Msg("reply dispatched")
	return nil
}

// revertHandling returns a message stuck in handling to processed.
func (p *Pipeline) revertHandling(ctx context.Context, mid string) {
	if _, err := p.store.TransitionMessageStatus(ctx, mid, models.StatusHandling, models.StatusProcessed); err != nil {
		p.logger.Error().Err(err).Str("mid", mid).Msg("revert handling failed")
	}
}
