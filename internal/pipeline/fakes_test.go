package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/haider984/codsy/internal/auth"
	"github.com/haider984/codsy/internal/channel"
	"github.com/haider984/codsy/internal/executor"
	"github.com/haider984/codsy/internal/llm"
	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/models"
	"github.com/haider984/codsy/internal/store"
)

// fakeLLM is a scriptable llm.Client.
type fakeLLM struct {
	mu sync.Mutex

	classifyType models.MessageType
	classifyErr  error

	specs      []llm.TaskSpec
	extractErr error

	verdict   models.TaskStatus
	verifyErr error

	summary      string
	summarizeErr error

	chat    string
	chatErr error

	classifyCalls  int
	extractCalls   int
	verifyCalls    int
	summarizeCalls int
	chatCalls      int
}

func (f *fakeLLM) Classify(ctx context.Context, content string) (models.MessageType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifyCalls++
	if f.classifyErr != nil {
		return "", f.classifyErr
	}
	return f.classifyType, nil
}

func (f *fakeLLM) ExtractTasks(ctx context.Context, content string) ([]llm.TaskSpec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls++
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.specs, nil
}

func (f *fakeLLM) VerifyResult(ctx context.Context, platform models.Platform, result string) (models.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.verdict, nil
}

func (f *fakeLLM) Summarize(ctx context.Context, mid string, results []llm.TaskResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarizeCalls++
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return f.summary, nil
}

func (f *fakeLLM) ChatReply(ctx context.Context, content string, history []models.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chat, nil
}

type sentReply struct {
	mid  string
	text string
}

// fakeAdapter is a scriptable channel.Adapter.
type fakeAdapter struct {
	mu sync.Mutex

	source   models.Source
	unread   []channel.RawMessage
	fetchErr error
	sendErr  error

	sent     []sentReply
	consumed []string
}

func (f *fakeAdapter) Source() models.Source { return f.source }

func (f *fakeAdapter) FetchUnread(ctx context.Context) ([]channel.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]channel.RawMessage, len(f.unread))
	copy(out, f.unread)
	return out, nil
}

func (f *fakeAdapter) SendReply(ctx context.Context, msg *models.Message, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentReply{mid: msg.ID, text: text})
	return nil
}

func (f *fakeAdapter) MarkConsumed(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, externalID)
	return nil
}

func (f *fakeAdapter) consumedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.consumed))
	copy(out, f.consumed)
	return out
}

// fakeExecutor records the descriptions it was asked to run.
type fakeExecutor struct {
	mu sync.Mutex

	result string
	err    error

	calls  int
	inputs []string
}

func (f *fakeExecutor) Execute(ctx context.Context, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, description)
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

// testClock is a manual clock whose sleep advances time instead of
// blocking, so the synthesizer's bounded wait runs instantly in tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return ctx.Err()
}

// fixture wires a pipeline over the in-memory store and lock with
// scriptable collaborators.
type fixture struct {
	store  *store.MemoryStore
	locker *lock.MemoryLock
	llm    *fakeLLM
	email  *fakeAdapter
	slack  *fakeAdapter
	git    *fakeExecutor
	jira   *fakeExecutor
	clock  *testClock
	p      *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  store.NewMemoryStore(),
		locker: lock.NewMemoryLock(),
		llm:    &fakeLLM{classifyType: models.TypeGreeting, verdict: models.TaskProcessed, summary: "merged reply", chat: "hello there"},
		email:  &fakeAdapter{source: models.SourceEmail},
		slack:  &fakeAdapter{source: models.SourceSlack},
		git:    &fakeExecutor{result: "done"},
		jira:   &fakeExecutor{result: "done"},
		clock:  newTestClock(),
	}

	f.p = New(
		f.store,
		f.locker,
		llm.NewStaticFactory(f.llm),
		[]channel.Adapter{f.email, f.slack},
		executor.Registry{
			models.PlatformGit:  f.git,
			models.PlatformJira: f.jira,
		},
		auth.NewAllowlist(nil),
		zerolog.Nop(),
		Options{},
	)
	f.p.now = f.clock.Now
	f.p.sleep = f.clock.Sleep
	return f
}

// seedMessage persists a message and returns it.
func (f *fixture) seedMessage(t *testing.T, msg models.Message) *models.Message {
	t.Helper()
	if err := f.store.CreateMessage(context.Background(), &msg); err != nil {
		t.Fatal(err)
	}
	return &msg
}

// seedTask persists a task and returns it.
func (f *fixture) seedTask(t *testing.T, task models.Task) *models.Task {
	t.Helper()
	if err := f.store.CreateTask(context.Background(), &task); err != nil {
		t.Fatal(err)
	}
	return &task
}

// message re-reads a message, failing the test if it is gone.
func (f *fixture) message(t *testing.T, id string) *models.Message {
	t.Helper()
	msg, err := f.store.GetMessage(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if msg == nil {
		t.Fatalf("message %s not found", id)
	}
	return msg
}

// task re-reads a task, failing the test if it is gone.
func (f *fixture) task(t *testing.T, platform models.Platform, id string) *models.Task {
	t.Helper()
	task, err := f.store.GetTask(context.Background(), platform, id)
	if err != nil {
		t.Fatal(err)
	}
	if task == nil {
		t.Fatalf("%s task %s not found", platform, id)
	}
	return task
}
