package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/haider984/codsy/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		sender TEXT DEFAULT '',
		username TEXT DEFAULT '',
		content TEXT DEFAULT '',
		msg_id TEXT DEFAULT '',
		channel_id TEXT DEFAULT '',
		thread_ts TEXT DEFAULT '',
		message_type TEXT DEFAULT '',
		processed BOOLEAN DEFAULT FALSE,
		status TEXT NOT NULL,
		reply TEXT DEFAULT '',
		message_datetime TIMESTAMPTZ DEFAULT NOW(),
		completion_date TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS git_tasks (
		id TEXT PRIMARY KEY,
		mid TEXT NOT NULL,
		title TEXT DEFAULT '',
		description TEXT DEFAULT '',
		status TEXT NOT NULL,
		reply TEXT DEFAULT '',
		creation_date TIMESTAMPTZ DEFAULT NOW(),
		completion_date TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS jira_tasks (
		id TEXT PRIMARY KEY,
		mid TEXT NOT NULL,
		title TEXT DEFAULT '',
		description TEXT DEFAULT '',
		status TEXT NOT NULL,
		reply TEXT DEFAULT '',
		creation_date TIMESTAMPTZ DEFAULT NOW(),
		completion_date TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_messages_processed ON messages(processed);
	CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
	CREATE INDEX IF NOT EXISTS idx_git_tasks_mid ON git_tasks(mid);
	CREATE INDEX IF NOT EXISTS idx_git_tasks_status ON git_tasks(status);
	CREATE INDEX IF NOT EXISTS idx_jira_tasks_mid ON jira_tasks(mid);
	CREATE INDEX IF NOT EXISTS idx_jira_tasks_status ON jira_tasks(status);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const pgMessageColumns = `id, source, sender, username, content, msg_id, channel_id, thread_ts,
	message_type, processed, status, reply, message_datetime, completion_date`

func scanPgMessage(row pgx.Row) (*models.Message, error) {
	msg := &models.Message{}
	err := row.Scan(
		&msg.ID,
		&msg.Source,
		&msg.Sender,
		&msg.Username,
		&msg.Content,
		&msg.MsgID,
		&msg.ChannelID,
		&msg.ThreadTS,
		&msg.MessageType,
		&msg.Processed,
		&msg.Status,
		&msg.Reply,
		&msg.MessageDatetime,
		&msg.CompletionDate,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateMessage inserts a new message, assigning a ULID if unset.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.MessageDatetime.IsZero() {
		msg.MessageDatetime = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = models.StatusPending
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, source, sender, username, content, msg_id, channel_id, thread_ts,
			message_type, processed, status, reply, message_datetime, completion_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, msg.ID, msg.Source, msg.Sender, msg.Username, msg.Content, msg.MsgID, msg.ChannelID,
		msg.ThreadTS, msg.MessageType, msg.Processed, msg.Status, msg.Reply, msg.MessageDatetime,
		msg.CompletionDate)
	return err
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgMessageColumns+` FROM messages WHERE id = $1`, id)
	msg, err := scanPgMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// UpdateMessage rewrites all mutable fields of a message.
func (s *PostgresStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET source = $1, sender = $2, username = $3, content = $4, msg_id = $5, channel_id = $6,
			thread_ts = $7, message_type = $8, processed = $9, status = $10, reply = $11,
			message_datetime = $12, completion_date = $13
		WHERE id = $14
	`, msg.Source, msg.Sender, msg.Username, msg.Content, msg.MsgID, msg.ChannelID, msg.ThreadTS,
		msg.MessageType, msg.Processed, msg.Status, msg.Reply, msg.MessageDatetime,
		msg.CompletionDate, msg.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s not found", msg.ID)
	}
	return nil
}

// ListMessagesByProcessed retrieves messages by processed flag.
func (s *PostgresStore) ListMessagesByProcessed(ctx context.Context, processed bool) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgMessageColumns+` FROM messages WHERE processed = $1 ORDER BY message_datetime`, processed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPgMessages(rows)
}

// ListMessagesByStatus retrieves messages in the given status.
func (s *PostgresStore) ListMessagesByStatus(ctx context.Context, status models.MessageStatus) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgMessageColumns+` FROM messages WHERE status = $1 ORDER BY message_datetime`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPgMessages(rows)
}

// ListRecentMessagesBySender retrieves the most recent messages from one
// sender, newest first.
func (s *PostgresStore) ListRecentMessagesBySender(ctx context.Context, sender string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgMessageColumns+` FROM messages WHERE sender = $1
		 ORDER BY message_datetime DESC LIMIT $2`, sender, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPgMessages(rows)
}

func collectPgMessages(rows pgx.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		msg, err := scanPgMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// TransitionMessageStatus atomically moves a message from one status to
// another. Returns false when another worker won the claim.
func (s *PostgresStore) TransitionMessageStatus(ctx context.Context, id string, from, to models.MessageStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteMessage writes the reply and completion date together with a
// conditional status change, in one statement.
func (s *PostgresStore) CompleteMessage(ctx context.Context, id string, from, to models.MessageStatus, reply string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET status = $1, reply = $2, completion_date = NOW()
		WHERE id = $3 AND status = $4
	`, to, reply, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountMessagesByStatus returns the number of messages in a status.
func (s *PostgresStore) CountMessagesByStatus(ctx context.Context, status models.MessageStatus) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE status = $1`, status).Scan(&count)
	return count, err
}

const pgTaskColumns = `id, mid, title, description, status, reply, creation_date, completion_date`

func scanPgTask(row pgx.Row, platform models.Platform) (*models.Task, error) {
	task := &models.Task{Platform: platform}
	err := row.Scan(
		&task.ID,
		&task.MessageID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Reply,
		&task.CreationDate,
		&task.CompletionDate,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask inserts a new task into its platform table.
func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = ulid.Make().String()
	}
	if task.CreationDate.IsZero() {
		task.CreationDate = time.Now().UTC()
	}
	if task.Status == "" {
		task.Status = models.TaskPending
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+taskTable(task.Platform)+` (id, mid, title, description, status, reply, creation_date, completion_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, task.ID, task.MessageID, task.Title, task.Description, task.Status, task.Reply,
		task.CreationDate, task.CompletionDate)
	return err
}

// GetTask retrieves a task by platform and ID.
func (s *PostgresStore) GetTask(ctx context.Context, platform models.Platform, id string) (*models.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgTaskColumns+` FROM `+taskTable(platform)+` WHERE id = $1`, id)
	task, err := scanPgTask(row, platform)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// UpdateTask rewrites all mutable fields of a task.
func (s *PostgresStore) UpdateTask(ctx context.Context, task *models.Task) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+taskTable(task.Platform)+`
		SET mid = $1, title = $2, description = $3, status = $4, reply = $5, creation_date = $6, completion_date = $7
		WHERE id = $8
	`, task.MessageID, task.Title, task.Description, task.Status, task.Reply, task.CreationDate,
		task.CompletionDate, task.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s task %s not found", task.Platform, task.ID)
	}
	return nil
}

// ListTasksByStatus retrieves all tasks for one platform in a status.
func (s *PostgresStore) ListTasksByStatus(ctx context.Context, platform models.Platform, status models.TaskStatus) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgTaskColumns+` FROM `+taskTable(platform)+` WHERE status = $1 ORDER BY creation_date`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPgTasks(rows, platform)
}

// ListTasksByMessage retrieves all tasks (both platforms) owned by a message.
func (s *PostgresStore) ListTasksByMessage(ctx context.Context, mid string) ([]models.Task, error) {
	var tasks []models.Task
	for _, platform := range []models.Platform{models.PlatformGit, models.PlatformJira} {
		rows, err := s.pool.Query(ctx,
			`SELECT `+pgTaskColumns+` FROM `+taskTable(platform)+` WHERE mid = $1 ORDER BY creation_date`, mid)
		if err != nil {
			return nil, err
		}
		batch, err := collectPgTasks(rows, platform)
		rows.Close()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, batch...)
	}
	return tasks, nil
}

// CountTasksByMessage returns the number of tasks (both platforms) owned by
// a message.
func (s *PostgresStore) CountTasksByMessage(ctx context.Context, mid string) (int64, error) {
	var total int64
	for _, platform := range []models.Platform{models.PlatformGit, models.PlatformJira} {
		var count int64
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM `+taskTable(platform)+` WHERE mid = $1`, mid).Scan(&count)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

func collectPgTasks(rows pgx.Rows, platform models.Platform) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		task, err := scanPgTask(rows, platform)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
