package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/haider984/codsy/internal/models"
)

// MemoryStore is a mutex-guarded in-memory DataStore. It backs the
// pipeline tests and the STORE=memory development mode. The conditional
// transitions hold the same atomicity guarantee as the SQL stores: the
// status check and write happen under one critical section.
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string]models.Message
	tasks    map[models.Platform]map[string]models.Task
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]models.Message),
		tasks: map[models.Platform]map[string]models.Task{
			models.PlatformGit:  make(map[string]models.Task),
			models.PlatformJira: make(map[string]models.Task),
		},
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// CreateMessage stores a new message, assigning a ULID if unset.
func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.MessageDatetime.IsZero() {
		msg.MessageDatetime = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = models.StatusPending
	}
	if _, exists := s.messages[msg.ID]; exists {
		return fmt.Errorf("message %s already exists", msg.ID)
	}
	s.messages[msg.ID] = *msg
	return nil
}

// GetMessage retrieves a message by ID.
func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	out := msg
	return &out, nil
}

// UpdateMessage rewrites a message.
func (s *MemoryStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msg.ID]; !ok {
		return fmt.Errorf("message %s not found", msg.ID)
	}
	s.messages[msg.ID] = *msg
	return nil
}

// ListMessagesByProcessed retrieves messages by processed flag.
func (s *MemoryStore) ListMessagesByProcessed(ctx context.Context, processed bool) ([]models.Message, error) {
	return s.listMessages(func(m models.Message) bool { return m.Processed == processed })
}

// ListMessagesByStatus retrieves messages in the given status.
func (s *MemoryStore) ListMessagesByStatus(ctx context.Context, status models.MessageStatus) ([]models.Message, error) {
	return s.listMessages(func(m models.Message) bool { return m.Status == status })
}

// ListRecentMessagesBySender retrieves the most recent messages from one
// sender, newest first.
func (s *MemoryStore) ListRecentMessagesBySender(ctx context.Context, sender string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	messages, err := s.listMessages(func(m models.Message) bool { return m.Sender == sender })
	if err != nil {
		return nil, err
	}
	// listMessages sorts oldest first; reverse for newest first.
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].MessageDatetime.After(messages[j].MessageDatetime)
	})
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (s *MemoryStore) listMessages(match func(models.Message) bool) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []models.Message
	for _, msg := range s.messages {
		if match(msg) {
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].MessageDatetime.Before(messages[j].MessageDatetime)
	})
	return messages, nil
}

// TransitionMessageStatus atomically moves a message between statuses.
func (s *MemoryStore) TransitionMessageStatus(ctx context.Context, id string, from, to models.MessageStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || msg.Status != from {
		return false, nil
	}
	msg.Status = to
	s.messages[id] = msg
	return true, nil
}

// CompleteMessage writes reply and completion date with a conditional
// status change.
func (s *MemoryStore) CompleteMessage(ctx context.Context, id string, from, to models.MessageStatus, reply string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || msg.Status != from {
		return false, nil
	}
	now := time.Now().UTC()
	msg.Status = to
	msg.Reply = reply
	msg.CompletionDate = &now
	s.messages[id] = msg
	return true, nil
}

// CountMessagesByStatus returns the number of messages in a status.
func (s *MemoryStore) CountMessagesByStatus(ctx context.Context, status models.MessageStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, msg := range s.messages {
		if msg.Status == status {
			count++
		}
	}
	return count, nil
}

// CreateTask stores a new task.
func (s *MemoryStore) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = ulid.Make().String()
	}
	if task.CreationDate.IsZero() {
		task.CreationDate = time.Now().UTC()
	}
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	table, ok := s.tasks[task.Platform]
	if !ok {
		return fmt.Errorf("unknown platform %q", task.Platform)
	}
	table[task.ID] = *task
	return nil
}

// GetTask retrieves a task by platform and ID.
func (s *MemoryStore) GetTask(ctx context.Context, platform models.Platform, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[platform][id]
	if !ok {
		return nil, nil
	}
	out := task
	return &out, nil
}

// UpdateTask rewrites a task.
func (s *MemoryStore) UpdateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tasks[task.Platform]
	if !ok {
		return fmt.Errorf("unknown platform %q", task.Platform)
	}
	if _, ok := table[task.ID]; !ok {
		return fmt.Errorf("%s task %s not found", task.Platform, task.ID)
	}
	table[task.ID] = *task
	return nil
}

// ListTasksByStatus retrieves all tasks for one platform in a status.
func (s *MemoryStore) ListTasksByStatus(ctx context.Context, platform models.Platform, status models.TaskStatus) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []models.Task
	for _, task := range s.tasks[platform] {
		if task.Status == status {
			tasks = append(tasks, task)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

// ListTasksByMessage retrieves all tasks (both platforms) owned by a message.
func (s *MemoryStore) ListTasksByMessage(ctx context.Context, mid string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []models.Task
	for _, platform := range []models.Platform{models.PlatformGit, models.PlatformJira} {
		for _, task := range s.tasks[platform] {
			if task.MessageID == mid {
				tasks = append(tasks, task)
			}
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

// CountTasksByMessage returns the number of tasks owned by a message.
func (s *MemoryStore) CountTasksByMessage(ctx context.Context, mid string) (int64, error) {
	tasks, err := s.ListTasksByMessage(ctx, mid)
	if err != nil {
		return 0, err
	}
	return int64(len(tasks)), nil
}

func sortTasks(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreationDate.Equal(tasks[j].CreationDate) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreationDate.Before(tasks[j].CreationDate)
	})
}
