package models

import "time"

// Source identifies the channel a message arrived on.
type Source string

const (
	SourceEmail Source = "email"
	SourceSlack Source = "slack"
)

// Message is the root record for one inbound communication moving through
// classification, task delegation and reply delivery.
type Message struct {
	ID       string `json:"mid"` // ULID
	Source   Source `json:"source"`
	Sender   string `json:"sender"` // email address or slack user id
	Username string `json:"username"`
	Content  string `json:"content"`

	// Email routing: the external message id used for reply threading.
	MsgID string `json:"msg_id,omitempty"`

	// Slack routing.
	ChannelID string `json:"channel_id,omitempty"`
	ThreadTS  string `json:"thread_ts,omitempty"`

	MessageType MessageType   `json:"message_type,omitempty"`
	Processed   bool          `json:"processed"`
	Status      MessageStatus `json:"status"`
	Reply       string        `json:"reply,omitempty"`

	MessageDatetime time.Time  `json:"message_datetime"`
	CompletionDate  *time.Time `json:"completion_date,omitempty"`
}
