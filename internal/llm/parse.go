package llm

import (
	"encoding/json"
	"strings"

	"github.com/haider984/codsy/internal/models"
)

// ParseLabel extracts a taxonomy label from a raw model response. The
// model is asked for a single word but routinely wraps it in prose, so we
// substring-match against the known labels. Anything unrecognized
// defaults to greeting: a mis-classified message still gets a reply, a
// stuck one does not.
func ParseLabel(raw string) models.MessageType {
	lowered := strings.ToLower(raw)
	for _, t := range models.MessageTypes {
		if strings.Contains(lowered, string(t)) {
			return t
		}
	}
	return models.TypeGreeting
}

// ParseTasks decodes a model response into task specs. Markdown code
// fences are stripped first. A parse failure yields an empty list, never
// an error; tasks with an unknown platform or an empty title are dropped.
func ParseTasks(raw string) []TaskSpec {
	cleaned := StripFences(raw)

	var decoded []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Platform    string `json:"platform"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil
	}

	var specs []TaskSpec
	for _, item := range decoded {
		platform, ok := models.ParsePlatform(strings.ToLower(strings.TrimSpace(item.Platform)))
		if !ok {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		specs = append(specs, TaskSpec{
			Title:       title,
			Description: strings.TrimSpace(item.Description),
			Platform:    platform,
		})
	}
	return specs
}

// ParseVerdict maps a verifier response onto a task status. "completed"
// maps to processed; anything ambiguous defaults to pending so the task is
// retried rather than silently dropped.
func ParseVerdict(raw string) models.TaskStatus {
	verdict := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`)))
	switch {
	case strings.Contains(verdict, "completed"):
		return models.TaskProcessed
	case strings.Contains(verdict, "failed"):
		return models.TaskFailed
	default:
		return models.TaskPending
	}
}

// StripFences removes a surrounding markdown code fence from a model
// response, if present.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
