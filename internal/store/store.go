package store

import (
	"context"

	"github.com/haider984/codsy/internal/models"
)

// DataStore defines the interface for persistent storage of messages and
// tasks. PostgresStore, SQLiteStore and MemoryStore implement this
// interface.
//
// Get operations return (nil, nil) when the record does not exist.
//
// The Transition and Complete methods are conditional state changes: the
// write applies only if the record is currently in the expected status, and
// the boolean result reports whether this caller won the claim. All
// pipeline claims go through them; plain Update calls are reserved for
// records the caller exclusively owns (freshly created, or held under a
// lock).
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Message operations
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	UpdateMessage(ctx context.Context, msg *models.Message) error
	ListMessagesByProcessed(ctx context.Context, processed bool) ([]models.Message, error)
	ListMessagesByStatus(ctx context.Context, status models.MessageStatus) ([]models.Message, error)
	ListRecentMessagesBySender(ctx context.Context, sender string, limit int) ([]models.Message, error)
	TransitionMessageStatus(ctx context.Context, id string, from, to models.MessageStatus) (bool, error)
	CompleteMessage(ctx context.Context, id string, from, to models.MessageStatus, reply string) (bool, error)
	CountMessagesByStatus(ctx context.Context, status models.MessageStatus) (int64, error)

	// Task operations
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, platform models.Platform, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	ListTasksByStatus(ctx context.Context, platform models.Platform, status models.TaskStatus) ([]models.Task, error)
	ListTasksByMessage(ctx context.Context, mid string) ([]models.Task, error)
	CountTasksByMessage(ctx context.Context, mid string) (int64, error)
}

// taskTable maps a platform to its collection. Git and Jira tasks live in
// separate tables with identical schemas.
func taskTable(platform models.Platform) string {
	if platform == models.PlatformJira {
		return "jira_tasks"
	}
	return "git_tasks"
}
