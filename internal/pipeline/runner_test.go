package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/haider984/codsy/internal/lock"
	"github.com/haider984/codsy/internal/models"
)

func TestRunTasksExecutesAndVerifies(t *testing.T) {
	f := newFixture(t)
	f.git.result = "Repository acme/api created at https://github.com/acme/api"
	f.llm.verdict = models.TaskProcessed
	task := f.seedTask(t, models.Task{
		MessageID:   "msg-1",
		Platform:    models.PlatformGit,
		Title:       "Create repo",
		Description: "Create repository acme/api",
		Status:      models.TaskPending,
	})

	f.p.RunTasks(context.Background())

	got := f.task(t, models.PlatformGit, task.ID)
	if got.Status != models.TaskProcessed {
		t.Fatalf("expected processed, got %q", got.Status)
	}
	if got.Reply != f.git.result {
		t.Fatalf("executor output must become the reply, got %q", got.Reply)
	}
	if got.CompletionDate == nil {
		t.Fatal("terminal task must carry a completion date")
	}
	if len(f.git.inputs) != 1 || f.git.inputs[0] != "Create repo: Create repository acme/api" {
		t.Fatalf("unexpected executor input %v", f.git.inputs)
	}
}

func TestRunTasksExecutorErrorFailsTask(t *testing.T) {
	f := newFixture(t)
	f.jira.err = errors.New("jira: 503 service unavailable")
	task := f.seedTask(t, models.Task{
		MessageID: "msg-1",
		Platform:  models.PlatformJira,
		Title:     "Open ticket",
		Status:    models.TaskPending,
	})

	f.p.RunTasks(context.Background())

	got := f.task(t, models.PlatformJira, task.ID)
	if got.Status != models.TaskFailed {
		t.Fatalf("expected failed, got %q", got.Status)
	}
	if got.Reply != "jira: 503 service unavailable" {
		t.Fatalf("error text must become the reply, got %q", got.Reply)
	}
	if got.CompletionDate == nil {
		t.Fatal("failed is terminal, completion date required")
	}
	if f.llm.verifyCalls != 0 {
		t.Fatal("executor errors skip verification")
	}
}

func TestRunTasksAmbiguousVerdictStaysPending(t *testing.T) {
	f := newFixture(t)
	f.git.result = "operation queued, check back later"
	f.llm.verdict = models.TaskPending
	task := f.seedTask(t, models.Task{
		MessageID: "msg-1",
		Platform:  models.PlatformGit,
		Title:     "Create repo",
		Status:    models.TaskPending,
	})

	f.p.RunTasks(context.Background())

	got := f.task(t, models.PlatformGit, task.ID)
	if got.Status != models.TaskPending {
		t.Fatalf("expected pending, got %q", got.Status)
	}
	if got.Reply != "" {
		t.Fatalf("pending task must not carry a reply, got %q", got.Reply)
	}
	if got.CompletionDate != nil {
		t.Fatal("pending task must not carry a completion date")
	}
}

func TestRunTasksVerifierErrorStaysPending(t *testing.T) {
	f := newFixture(t)
	f.llm.verifyErr = errors.New("model unavailable")
	task := f.seedTask(t, models.Task{
		MessageID: "msg-1",
		Platform:  models.PlatformGit,
		Title:     "Create repo",
		Status:    models.TaskPending,
	})

	f.p.RunTasks(context.Background())

	got := f.task(t, models.PlatformGit, task.ID)
	if got.Status != models.TaskPending {
		t.Fatalf("verifier failure must leave the task pending, got %q", got.Status)
	}
}

func TestRunTasksLockContentionSkips(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t, models.Task{
		MessageID: "msg-1",
		Platform:  models.PlatformGit,
		Title:     "Create repo",
		Status:    models.TaskPending,
	})

	// Another worker holds the task lock.
	held, err := f.locker.Acquire(context.Background(), lock.TaskKey(models.PlatformGit, task.ID), lock.DefaultTTL)
	if err != nil || !held {
		t.Fatalf("setup lock failed: %v %v", held, err)
	}

	f.p.RunTasks(context.Background())

	if f.git.calls != 0 {
		t.Fatal("locked task must not execute")
	}
	got := f.task(t, models.PlatformGit, task.ID)
	if got.Status != models.TaskPending {
		t.Fatalf("locked task must stay pending, got %q", got.Status)
	}
}

func TestRunTasksSkipsClaimedTask(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t, models.Task{
		MessageID: "msg-1",
		Platform:  models.PlatformGit,
		Title:     "Create repo",
		Status:    models.TaskPending,
	})

	// The listing is stale: the task finished between list and lock.
	task.Status = models.TaskProcessed
	task.Reply = "done elsewhere"
	if err := f.store.UpdateTask(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	stale := *task
	stale.Status = models.TaskPending
	if err := f.p.executeOne(context.Background(), &stale); err != nil {
		t.Fatal(err)
	}
	if f.git.calls != 0 {
		t.Fatal("already-finished task must not re-execute")
	}
}
