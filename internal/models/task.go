package models

import "time"

// Platform selects which external tool a task is executed against.
type Platform string

const (
	PlatformGit  Platform = "git"
	PlatformJira Platform = "jira"
)

// ParsePlatform normalizes a platform value from untrusted input (LLM
// output, API payloads). Returns false for anything outside the two
// supported platforms.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformGit:
		return PlatformGit, true
	case PlatformJira:
		return PlatformJira, true
	default:
		return "", false
	}
}

// Task is a delegated unit of work extracted from a message. Git and Jira
// tasks share the struct and lifecycle; Platform picks the collection and
// the executor.
type Task struct {
	ID          string     `json:"task_id"` // ULID
	MessageID   string     `json:"mid"`     // owning message
	Platform    Platform   `json:"platform"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Reply       string     `json:"reply,omitempty"`

	CreationDate   time.Time  `json:"creation_date"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}
