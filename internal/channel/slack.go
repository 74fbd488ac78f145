package channel

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/haider984/codsy/internal/models"
)

// SlackAdapter delivers replies through the Slack Web API. Ingestion is
// push-based: the API server's event endpoint persists inbound Slack
// messages directly, so FetchUnread has nothing to pull and MarkConsumed
// is a no-op.
type SlackAdapter struct {
	client *slack.Client
}

// NewSlackAdapter creates a Slack adapter from a bot token.
func NewSlackAdapter(botToken string) *SlackAdapter {
	return &SlackAdapter{client: slack.New(botToken)}
}

// Source identifies this adapter's channel.
func (a *SlackAdapter) Source() models.Source {
	return models.SourceSlack
}

// FetchUnread returns nothing; Slack messages arrive via the event
// endpoint.
func (a *SlackAdapter) FetchUnread(ctx context.Context) ([]RawMessage, error) {
	return nil, nil
}

// SendReply posts the reply to the originating channel, threading under
// the source message when a thread timestamp is present. Requires
// ChannelID on the message.
func (a *SlackAdapter) SendReply(ctx context.Context, msg *models.Message, text string) error {
	if msg.ChannelID == "" {
		return ErrMissingRouting
	}

	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}

	if _, _, err := a.client.PostMessageContext(ctx, msg.ChannelID, opts...); err != nil {
		return fmt.Errorf("slack post failed: %w", err)
	}
	return nil
}

// MarkConsumed is a no-op for the push-based Slack channel.
func (a *SlackAdapter) MarkConsumed(ctx context.Context, externalID string) error {
	return nil
}
