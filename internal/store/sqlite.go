package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/haider984/codsy/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/codsy.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/codsy.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
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
		processed INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		reply TEXT DEFAULT '',
		message_datetime DATETIME DEFAULT CURRENT_TIMESTAMP,
		completion_date DATETIME
	);

	CREATE TABLE IF NOT EXISTS git_tasks (
		id TEXT PRIMARY KEY,
		mid TEXT NOT NULL,
		title TEXT DEFAULT '',
		description TEXT DEFAULT '',
		status TEXT NOT NULL,
		reply TEXT DEFAULT '',
		creation_date DATETIME DEFAULT CURRENT_TIMESTAMP,
		completion_date DATETIME
	);

	CREATE TABLE IF NOT EXISTS jira_tasks (
		id TEXT PRIMARY KEY,
		mid TEXT NOT NULL,
		title TEXT DEFAULT '',
		description TEXT DEFAULT '',
		status TEXT NOT NULL,
		reply TEXT DEFAULT '',
		creation_date DATETIME DEFAULT CURRENT_TIMESTAMP,
		completion_date DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_messages_processed ON messages(processed);
	CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
	CREATE INDEX IF NOT EXISTS idx_git_tasks_mid ON git_tasks(mid);
	CREATE INDEX IF NOT EXISTS idx_git_tasks_status ON git_tasks(status);
	CREATE INDEX IF NOT EXISTS idx_jira_tasks_mid ON jira_tasks(mid);
	CREATE INDEX IF NOT EXISTS idx_jira_tasks_status ON jira_tasks(status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sqliteMessageColumns = `id, source, sender, username, content, msg_id, channel_id, thread_ts,
	message_type, processed, status, reply, message_datetime, completion_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var processed int
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
		&processed,
		&msg.Status,
		&msg.Reply,
		&msg.MessageDatetime,
		&msg.CompletionDate,
	)
	if err != nil {
		return nil, err
	}
	msg.Processed = processed == 1
	return msg, nil
}

// CreateMessage inserts a new message, assigning a ULID if unset.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.MessageDatetime.IsZero() {
		msg.MessageDatetime = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = models.StatusPending
	}

	processed := 0
	if msg.Processed {
		processed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, source, sender, username, content, msg_id, channel_id, thread_ts,
			message_type, processed, status, reply, message_datetime, completion_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.Source, msg.Sender, msg.Username, msg.Content, msg.MsgID, msg.ChannelID,
		msg.ThreadTS, msg.MessageType, processed, msg.Status, msg.Reply, msg.MessageDatetime,
		msg.CompletionDate)
	return err
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteMessageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanSQLiteMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// UpdateMessage rewrites all mutable fields of a message.
func (s *SQLiteStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	processed := 0
	if msg.Processed {
		processed = 1
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET source = ?, sender = ?, username = ?, content = ?, msg_id = ?, channel_id = ?,
			thread_ts = ?, message_type = ?, processed = ?, status = ?, reply = ?,
			message_datetime = ?, completion_date = ?
		WHERE id = ?
	`, msg.Source, msg.Sender, msg.Username, msg.Content, msg.MsgID, msg.ChannelID, msg.ThreadTS,
		msg.MessageType, processed, msg.Status, msg.Reply, msg.MessageDatetime, msg.CompletionDate,
		msg.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("message %s not found", msg.ID)
	}
	return nil
}

// ListMessagesByProcessed retrieves messages by processed flag.
func (s *SQLiteStore) ListMessagesByProcessed(ctx context.Context, processed bool) ([]models.Message, error) {
	flag := 0
	if processed {
		flag = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteMessageColumns+` FROM messages WHERE processed = ? ORDER BY message_datetime`, flag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteMessages(rows)
}

// ListMessagesByStatus retrieves messages in the given status.
func (s *SQLiteStore) ListMessagesByStatus(ctx context.Context, status models.MessageStatus) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteMessageColumns+` FROM messages WHERE status = ? ORDER BY message_datetime`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteMessages(rows)
}

// ListRecentMessagesBySender retrieves the most recent messages from one
// sender, newest first.
func (s *SQLiteStore) ListRecentMessagesBySender(ctx context.Context, sender string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteMessageColumns+` FROM messages WHERE sender = ?
		 ORDER BY message_datetime DESC LIMIT ?`, sender, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteMessages(rows)
}

func collectSQLiteMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		msg, err := scanSQLiteMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// TransitionMessageStatus atomically moves a message from one status to
// another. Returns false when the message is no longer in the expected
// status, i.e. another worker won the claim.
func (s *SQLiteStore) TransitionMessageStatus(ctx context.Context, id string, from, to models.MessageStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteMessage writes the reply and completion date together with a
// conditional status change, in one statement.
func (s *SQLiteStore) CompleteMessage(ctx context.Context, id string, from, to models.MessageStatus, reply string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ?, reply = ?, completion_date = ?
		WHERE id = ? AND status = ?
	`, to, reply, now, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountMessagesByStatus returns the number of messages in a status.
func (s *SQLiteStore) CountMessagesByStatus(ctx context.Context, status models.MessageStatus) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE status = ?`, status).Scan(&count)
	return count, err
}

const sqliteTaskColumns = `id, mid, title, description, status, reply, creation_date, completion_date`

func scanSQLiteTask(row rowScanner, platform models.Platform) (*models.Task, error) {
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
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = ulid.Make().String()
	}
	if task.CreationDate.IsZero() {
		task.CreationDate = time.Now().UTC()
	}
	if task.Status == "" {
		task.Status = models.TaskPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+taskTable(task.Platform)+` (id, mid, title, description, status, reply, creation_date, completion_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.MessageID, task.Title, task.Description, task.Status, task.Reply,
		task.CreationDate, task.CompletionDate)
	return err
}

// GetTask retrieves a task by platform and ID.
func (s *SQLiteStore) GetTask(ctx context.Context, platform models.Platform, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM `+taskTable(platform)+` WHERE id = ?`, id)
	task, err := scanSQLiteTask(row, platform)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// UpdateTask rewrites all mutable fields of a task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *models.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE `+taskTable(task.Platform)+`
		SET mid = ?, title = ?, description = ?, status = ?, reply = ?, creation_date = ?, completion_date = ?
		WHERE id = ?
	`, task.MessageID, task.Title, task.Description, task.Status, task.Reply, task.CreationDate,
		task.CompletionDate, task.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s task %s not found", task.Platform, task.ID)
	}
	return nil
}

// ListTasksByStatus retrieves all tasks for one platform in a status.
func (s *SQLiteStore) ListTasksByStatus(ctx context.Context, platform models.Platform, status models.TaskStatus) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM `+taskTable(platform)+` WHERE status = ? ORDER BY creation_date`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteTasks(rows, platform)
}

// ListTasksByMessage retrieves all tasks (both platforms) owned by a message.
func (s *SQLiteStore) ListTasksByMessage(ctx context.Context, mid string) ([]models.Task, error) {
	var tasks []models.Task
	for _, platform := range []models.Platform{models.PlatformGit, models.PlatformJira} {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+sqliteTaskColumns+` FROM `+taskTable(platform)+` WHERE mid = ? ORDER BY creation_date`, mid)
		if err != nil {
			return nil, err
		}
		batch, err := collectSQLiteTasks(rows, platform)
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
func (s *SQLiteStore) CountTasksByMessage(ctx context.Context, mid string) (int64, error) {
	var total int64
	for _, platform := range []models.Platform{models.PlatformGit, models.PlatformJira} {
		var count int64
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+taskTable(platform)+` WHERE mid = ?`, mid).Scan(&count)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

func collectSQLiteTasks(rows *sql.Rows, platform models.Platform) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		task, err := scanSQLiteTask(rows, platform)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
