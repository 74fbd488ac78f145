package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haider984/codsy/internal/models"
)

func TestMemoryStoreMessageRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	msg := &models.Message{
		Source:  models.SourceEmail,
		Sender:  "alice@example.com",
		Content: "hello",
	}
	require.NoError(t, s.CreateMessage(ctx, msg))
	require.NotEmpty(t, msg.ID)
	require.Equal(t, models.StatusPending, msg.Status)
	require.False(t, msg.MessageDatetime.IsZero())

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "hello", got.Content)

	got.Reply = "hi"
	require.NoError(t, s.UpdateMessage(ctx, got))
	again, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, "hi", again.Reply)
}

func TestMemoryStoreGetMissingIsNilNil(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	msg, err := s.GetMessage(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, msg)

	task, err := s.GetTask(ctx, models.PlatformGit, "nope")
	require.NoError(t, err)
	require.Nil(t, task)
}

func TestMemoryStoreTransitionIsConditional(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	msg := &models.Message{Source: models.SourceEmail, Sender: "a@b.c"}
	require.NoError(t, s.CreateMessage(ctx, msg))

	won, err := s.TransitionMessageStatus(ctx, msg.ID, models.StatusPending, models.StatusProcessed)
	require.NoError(t, err)
	require.True(t, won)

	// Stale expectation loses.
	won, err = s.TransitionMessageStatus(ctx, msg.ID, models.StatusPending, models.StatusProcessed)
	require.NoError(t, err)
	require.False(t, won)

	// Missing record loses without error.
	won, err = s.TransitionMessageStatus(ctx, "nope", models.StatusPending, models.StatusProcessed)
	require.NoError(t, err)
	require.False(t, won)
}

func TestMemoryStoreTransitionSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	msg := &models.Message{Source: models.SourceEmail, Sender: "a@b.c"}
	require.NoError(t, s.CreateMessage(ctx, msg))

	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.TransitionMessageStatus(ctx, msg.ID, models.StatusPending, models.StatusProcessed)
			require.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one worker wins the claim")
}

func TestMemoryStoreCompleteMessage(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	msg := &models.Message{Source: models.SourceEmail, Sender: "a@b.c", Status: models.StatusHandling}
	require.NoError(t, s.CreateMessage(ctx, msg))

	done, err := s.CompleteMessage(ctx, msg.ID, models.StatusHandling, models.StatusSuccessful, "all done")
	require.NoError(t, err)
	require.True(t, done)

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccessful, got.Status)
	require.Equal(t, "all done", got.Reply)
	require.NotNil(t, got.CompletionDate)

	// Terminal state never reverts.
	done, err = s.CompleteMessage(ctx, msg.ID, models.StatusHandling, models.StatusSuccessful, "again")
	require.NoError(t, err)
	require.False(t, done)
}

func TestMemoryStoreListMessages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateMessage(ctx, &models.Message{
			Source: models.SourceSlack, Sender: "U1", Processed: i%2 == 0,
		}))
	}

	unprocessed, err := s.ListMessagesByProcessed(ctx, false)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)

	pending, err := s.ListMessagesByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	count, err := s.CountMessagesByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	recent, err := s.ListRecentMessagesBySender(ctx, "U1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestMemoryStoreTasksPerPlatform(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	gitTask := &models.Task{MessageID: "m1", Platform: models.PlatformGit, Title: "g"}
	jiraTask := &models.Task{MessageID: "m1", Platform: models.PlatformJira, Title: "j"}
	require.NoError(t, s.CreateTask(ctx, gitTask))
	require.NoError(t, s.CreateTask(ctx, jiraTask))
	require.Equal(t, models.TaskPending, gitTask.Status)

	// Platform scoping: the git table does not see the jira task.
	gitPending, err := s.ListTasksByStatus(ctx, models.PlatformGit, models.TaskPending)
	require.NoError(t, err)
	require.Len(t, gitPending, 1)
	require.Equal(t, "g", gitPending[0].Title)

	// Message scoping spans both platforms.
	byMessage, err := s.ListTasksByMessage(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, byMessage, 2)

	count, err := s.CountTasksByMessage(ctx, "m1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	gitTask.Status = models.TaskProcessed
	gitTask.Reply = "done"
	require.NoError(t, s.UpdateTask(ctx, gitTask))
	got, err := s.GetTask(ctx, models.PlatformGit, gitTask.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskProcessed, got.Status)
}

func TestMemoryStoreCreateTaskUnknownPlatform(t *testing.T) {
	s := NewMemoryStore()
	err := s.CreateTask(context.Background(), &models.Task{Platform: "svn", Title: "x"})
	require.Error(t, err)
}
