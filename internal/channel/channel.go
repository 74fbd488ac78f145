// Package channel abstracts the external message channels (email, Slack)
// behind one adapter interface consumed by the pipeline's poller and
// dispatcher.
package channel

import (
	"context"
	"errors"

	"github.com/haider984/codsy/internal/models"
)

// ErrMissingRouting is returned by SendReply when the message lacks the
// routing fields the channel needs (msg_id for email, channel_id for
// Slack). The dispatcher treats it as a skip, not a delivery failure.
var ErrMissingRouting = errors.New("message is missing channel routing fields")

// RawMessage is one unconsumed inbound message as fetched from a channel.
type RawMessage struct {
	ExternalID string // channel-native id, used for MarkConsumed and reply threading
	Sender     string // email address or slack user id
	Username   string
	Subject    string
	Body       string

	// Slack routing
	ChannelID string
	ThreadTS  string
}

// Adapter is a channel-specific collaborator. FetchUnread pulls new
// messages; SendReply delivers a synthesized reply using the routing
// fields on the message; MarkConsumed prevents re-ingestion.
type Adapter interface {
	Source() models.Source
	FetchUnread(ctx context.Context) ([]RawMessage, error)
	SendReply(ctx context.Context, msg *models.Message, text string) error
	MarkConsumed(ctx context.Context, externalID string) error
}
