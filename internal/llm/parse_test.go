package llm

import (
	"testing"

	"github.com/haider984/codsy/internal/models"
)

func TestParseLabel(t *testing.T) {
	cases := []struct {
		raw  string
		want models.MessageType
	}{
		{"transcript", models.TypeTranscript},
		{"Transcript", models.TypeTranscript},
		{"The label is: instructions.", models.TypeInstructions},
		{"meeting", models.TypeMeeting},
		{"greeting", models.TypeGreeting},
		{"I'm not sure about this one", models.TypeGreeting},
		{"", models.TypeGreeting},
	}
	for _, tc := range cases {
		if got := ParseLabel(tc.raw); got != tc.want {
			t.Errorf("ParseLabel(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseTasks(t *testing.T) {
	raw := `[
		{"title": "Create repo", "description": "Create acme/api", "platform": "git"},
		{"title": "Open ticket", "description": "PROJ board", "platform": "jira"}
	]`
	specs := ParseTasks(raw)
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Platform != models.PlatformGit || specs[0].Title != "Create repo" {
		t.Fatalf("unexpected first spec %+v", specs[0])
	}
	if specs[1].Platform != models.PlatformJira {
		t.Fatalf("unexpected second spec %+v", specs[1])
	}
}

func TestParseTasksStripsFence(t *testing.T) {
	raw := "```json\n[{\"title\": \"T\", \"description\": \"D\", \"platform\": \"git\"}]\n```"
	specs := ParseTasks(raw)
	if len(specs) != 1 || specs[0].Title != "T" {
		t.Fatalf("fenced JSON not parsed: %+v", specs)
	}
}

func TestParseTasksDropsInvalidEntries(t *testing.T) {
	raw := `[
		{"title": "Keep", "platform": "git"},
		{"title": "Unknown platform", "platform": "svn"},
		{"title": "   ", "platform": "jira"}
	]`
	specs := ParseTasks(raw)
	if len(specs) != 1 || specs[0].Title != "Keep" {
		t.Fatalf("expected only the valid spec, got %+v", specs)
	}
}

func TestParseTasksMalformedYieldsEmpty(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"title": "obj not array"}`, "[{broken"} {
		if specs := ParseTasks(raw); specs != nil {
			t.Errorf("ParseTasks(%q) = %+v, want nil", raw, specs)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		raw  string
		want models.TaskStatus
	}{
		{"completed", models.TaskProcessed},
		{" Completed ", models.TaskProcessed},
		{`"completed"`, models.TaskProcessed},
		{"failed", models.TaskFailed},
		{"The operation failed", models.TaskFailed},
		{"pending", models.TaskPending},
		{"cannot tell", models.TaskPending},
		{"", models.TaskPending},
	}
	for _, tc := range cases {
		if got := ParseVerdict(tc.raw); got != tc.want {
			t.Errorf("ParseVerdict(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ raw, want string }{
		{"```json\n[]\n```", "[]"},
		{"```\n[]\n```", "[]"},
		{"[]", "[]"},
		{"  []  ", "[]"},
	}
	for _, tc := range cases {
		if got := StripFences(tc.raw); got != tc.want {
			t.Errorf("StripFences(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
