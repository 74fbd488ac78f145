package pipeline

import (
	"context"
	"strings"

	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/metrics"
	"github.com/haider984/codsy/internal/models"
)

// seenIDsCap bounds the poller dedup set; when exceeded the set is simply
// reset. The consumed flag on the channel side is the durable guard, the
// set only covers the window before MarkConsumed takes effect.
const seenIDsCap = 5000

// RunPoll pulls unread messages from every channel adapter, applies the
// authorization gate, and persists authorized messages as pending.
func (p *Pipeline) RunPoll(ctx context.Context) {
	for _, adapter := range p.adapters {
		p.pollAdapter(ctx, adapter)
	}
}

func (p *Pipeline) pollAdapter(ctx context.Context, adapter channel.Adapter) {
	source := adapter.Source()
	log := p.logger.With().Str("source", string(source)).Logger()

	raws, err := adapter.FetchUnread(ctx)
	if err != nil {
		log.Error().Err(err).Msg("fetch unread failed")
		return
	}
	if len(raws) == 0 {
		return
	}
	log.Info().Int("count", len(raws)).Msg("fetched unread messages")

	for _, raw := range raws {
		if err := p.ingest(ctx, adapter, raw); err != nil {
			log.Error().Err(err).Str("external_id", raw.ExternalID).Msg("ingest failed")
		}
	}

	if len(p.seenIDs) > seenIDsCap {
		p.seenIDs = make(map[string]struct{})
	}
}

func (p *Pipeline) ingest(ctx context.Context, adapter channel.Adapter, raw channel.RawMessage) error {
	source := adapter.Source()

	if _, seen := p.seenIDs[raw.ExternalID]; seen {
		return nil
	}
	p.seenIDs[raw.ExternalID] = struct{}{}

	// Unauthorized senders are consumed but never persisted: they must
	// not appear in any downstream query and never receive a reply.
	if !p.auth.IsAuthorized(raw.Sender) {
		p.logger.Warn().
			Str("source", string(source)).
			Str("sender", raw.Sender).
			Msg("unauthorized sender, consuming without ingestion")
		metrics.MessagesRejected.Inc()
		return adapter.MarkConsumed(ctx, raw.ExternalID)
	}

	msg := &models.Message{
		Source:    source,
		Sender:    raw.Sender,
		Username:  raw.Username,
		Content:   buildContent(raw),
		Processed: false,
		Status:    models.StatusPending,
	}
	switch source {
	case models.SourceEmail:
		msg.MsgID = raw.ExternalID
	case models.SourceSlack:
		msg.ChannelID = raw.ChannelID
		msg.ThreadTS = raw.ThreadTS
	}

	if err := p.store.CreateMessage(ctx, msg); err != nil {
		// Leave unconsumed so the next poll retries ingestion.
		delete(p.seenIDs, raw.ExternalID)
		return err
	}

	metrics.MessagesIngested.WithLabelValues(string(source)).Inc()
	p.logger.Info().
		Str("source", string(source)).
		Str("mid", msg.ID).
		Str("sender", raw.Sender).
		Msg("message ingested")

	return adapter.MarkConsumed(ctx, raw.ExternalID)
}

func buildContent(raw channel.RawMessage) string {
	if raw.Subject == "" {
		return raw.Body
	}
	if raw.Body == "" {
		return raw.Subject
	}
	return raw.Subject + "\n\n" + raw.Body
}

// IngestSlackEvent persists one pushed Slack message, applying the same
// authorization gate as the pollers. Used by the API server's event
// endpoint.
func (p *Pipeline) IngestSlackEvent(ctx context.Context, userID, username, text, channelID, ts string) (string, error) {
	if !p.auth.IsAuthorized(userID) {
		metrics.MessagesRejected.Inc()
		return "", nil
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	msg := &models.Message{
		Source:    models.SourceSlack,
		Sender:    userID,
		Username:  username,
		Content:   text,
		ChannelID: channelID,
		ThreadTS:  ts,
		Processed: false,
		Status:    models.StatusPending,
	}
	if err := p.store.CreateMessage(ctx, msg); err != nil {
		return "", err
	}
	metrics.MessagesIngested.WithLabelValues(string(models.SourceSlack)).Inc()
	return msg.ID, nil
}
