package pipeline

import (
	"context"
	"testing"

	"github.com/haider984/codsy/internal/auth"
	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/models"
)

func TestPollIngestsEmail(t *testing.T) {
	f := newFixture(t)
	f.email.unread = []channel.RawMessage{{
		ExternalID: "ext-1",
		Sender:     "alice@example.com",
		Username:   "Alice",
		Subject:    "Deploy request",
		Body:       "Please deploy the new build.",
	}}

	f.p.RunPoll(context.Background())

	messages, err := f.store.ListMessagesByStatus(context.Background(), models.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.Source != models.SourceEmail {
		t.Fatalf("expected email source, got %q", msg.Source)
	}
	if msg.MsgID != "ext-1" {
		t.Fatalf("expected email routing id ext-1, got %q", msg.MsgID)
	}
	if msg.Content != "Deploy request\n\nPlease deploy the new build." {
		t.Fatalf("unexpected content %q", msg.Content)
	}
	if msg.Processed {
		t.Fatal("ingested message must start unprocessed")
	}
	if got := f.email.consumedIDs(); len(got) != 1 || got[0] != "ext-1" {
		t.Fatalf("expected ext-1 consumed, got %v", got)
	}
}

func TestPollUnauthorizedConsumedNotPersisted(t *testing.T) {
	f := newFixture(t)
	f.p.auth = auth.NewAllowlist([]string{"alice@example.com"})
	f.email.unread = []channel.RawMessage{{
		ExternalID: "ext-2",
		Sender:     "mallory@example.com",
		Body:       "do something",
	}}

	f.p.RunPoll(context.Background())

	count, err := f.store.CountMessagesByStatus(context.Background(), models.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("unauthorized message was persisted, %d pending", count)
	}
	// Still consumed, so the channel does not re-deliver it forever.
	if got := f.email.consumedIDs(); len(got) != 1 || got[0] != "ext-2" {
		t.Fatalf("expected ext-2 consumed, got %v", got)
	}
}

func TestPollDeduplicatesWithinProcess(t *testing.T) {
	f := newFixture(t)
	f.email.unread = []channel.RawMessage{{
		ExternalID: "ext-3",
		Sender:     "alice@example.com",
		Body:       "hi",
	}}

	f.p.RunPoll(context.Background())
	// Same unread batch again: MarkConsumed is fake so the adapter keeps
	// returning it, the seen set must swallow the duplicate.
	f.p.RunPoll(context.Background())

	count, err := f.store.CountMessagesByStatus(context.Background(), models.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 message after duplicate poll, got %d", count)
	}
}

func TestIngestSlackEvent(t *testing.T) {
	f := newFixture(t)

	mid, err := f.p.IngestSlackEvent(context.Background(), "U123", "bob", "hello bot", "C42", "171717.0001")
	if err != nil {
		t.Fatal(err)
	}
	if mid == "" {
		t.Fatal("expected a message id")
	}

	msg := f.message(t, mid)
	if msg.Source != models.SourceSlack {
		t.Fatalf("expected slack source, got %q", msg.Source)
	}
	if msg.ChannelID != "C42" || msg.ThreadTS != "171717.0001" {
		t.Fatalf("slack routing not preserved: %q %q", msg.ChannelID, msg.ThreadTS)
	}
	if msg.Status != models.StatusPending {
		t.Fatalf("expected pending, got %q", msg.Status)
	}
}

func TestIngestSlackEventUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.p.auth = auth.NewAllowlist([]string{"U999"})

	mid, err := f.p.IngestSlackEvent(context.Background(), "U123", "bob", "hello", "C42", "")
	if err != nil {
		t.Fatal(err)
	}
	if mid != "" {
		t.Fatalf("unauthorized event must not be persisted, got mid %q", mid)
	}
}

func TestIngestSlackEventEmptyText(t *testing.T) {
	f := newFixture(t)

	mid, err := f.p.IngestSlackEvent(context.Background(), "U123", "bob", "   ", "C42", "")
	if err != nil {
		t.Fatal(err)
	}
	if mid != "" {
		t.Fatal("blank event must be dropped")
	}
}
