package pipeline

import (
	"context"
	"testing"

	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/models"
)

// Full lifecycle: an instructions email is polled, classified, decomposed,
// executed, summarized and answered.
func TestLifecycleInstructionsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.llm.classifyType = models.TypeInstructions
	f.llm.specs = []llm.TaskSpec{
		{Title: "Create repo", Description: "Create repository acme/api", Platform: models.PlatformGit},
	}
	f.llm.verdict = models.TaskProcessed
	f.llm.summary = "Done: the repository acme/api is created."
	f.git.result = "created acme/api"
	f.email.unread = []channel.RawMessage{{
		ExternalID: "ext-100",
		Sender:     "alice@example.com",
		Username:   "Alice",
		Subject:    "Repo please",
		Body:       "Create repository acme/api",
	}}

	f.p.RunPoll(ctx)
	f.p.RunClassify(ctx)
	f.p.RunTasks(ctx)
	f.p.RunSynthesize(ctx)
	f.p.RunDispatch(ctx)

	done, err := f.store.ListMessagesByStatus(ctx, models.StatusSuccessful)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 {
		t.Fatalf("expected 1 successful message, got %d", len(done))
	}
	msg := done[0]
	if msg.Reply != "Done: the repository acme/api is created." {
		t.Fatalf("unexpected reply %q", msg.Reply)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].text != msg.Reply {
		t.Fatalf("reply not delivered: %+v", f.email.sent)
	}

	tasks, err := f.store.ListTasksByMessage(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Status != models.TaskSuccessful {
		t.Fatalf("expected 1 successful task, got %+v", tasks)
	}
}

// Full lifecycle: a greeting over Slack gets a conversational reply in
// its thread without touching the task machinery.
func TestLifecycleGreetingSlack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.llm.classifyType = models.TypeGreeting
	f.llm.chat = "Hello! I can create repos and tickets for you."

	mid, err := f.p.IngestSlackEvent(ctx, "U123", "bob", "hey, what can you do?", "C42", "171717.0001")
	if err != nil {
		t.Fatal(err)
	}

	f.p.RunClassify(ctx)
	f.p.RunDispatch(ctx)

	msg := f.message(t, mid)
	if msg.Status != models.StatusSuccessful {
		t.Fatalf("expected successful, got %q", msg.Status)
	}
	if f.git.calls != 0 || f.jira.calls != 0 {
		t.Fatal("greeting must not execute tasks")
	}
	if len(f.slack.sent) != 1 || f.slack.sent[0].text != f.llm.chat {
		t.Fatalf("chat reply not delivered: %+v", f.slack.sent)
	}
}

// A failed execution still produces a delivered reply describing the
// failure; the pipeline never goes silent.
func TestLifecycleFailedTaskStillReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.llm.classifyType = models.TypeInstructions
	f.llm.specs = []llm.TaskSpec{
		{Title: "Open ticket", Description: "Open PROJ-1", Platform: models.PlatformJira},
	}
	f.llm.verdict = models.TaskFailed
	f.llm.summary = "I could not open the ticket: permission denied."
	f.jira.result = "403 forbidden: missing project permission"
	f.email.unread = []channel.RawMessage{{
		ExternalID: "ext-200",
		Sender:     "alice@example.com",
		Body:       "open PROJ-1",
	}}

	f.p.RunPoll(ctx)
	f.p.RunClassify(ctx)
	f.p.RunTasks(ctx)
	f.p.RunSynthesize(ctx)
	f.p.RunDispatch(ctx)

	if len(f.email.sent) != 1 {
		t.Fatalf("expected a delivered reply, got %d", len(f.email.sent))
	}
	if f.email.sent[0].text != "I could not open the ticket: permission denied." {
		t.Fatalf("unexpected reply %q", f.email.sent[0].text)
	}
}
