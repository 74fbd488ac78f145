package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultCommandTimeout = 10 * time.Minute

// CommandExecutor runs a configured external command with the task
// description on stdin and returns its combined output as the raw result.
// This is how the platform tools (GitHub agent, Jira agent) are attached
// without the pipeline knowing anything about them.
type CommandExecutor struct {
	Bin     string
	Args    []string
	Timeout time.Duration
}

// NewCommandExecutor builds an executor from a shell-style command string,
// e.g. "codsy-git-agent --json".
func NewCommandExecutor(command string) (*CommandExecutor, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("executor command is empty")
	}
	return &CommandExecutor{
		Bin:     parts[0],
		Args:    parts[1:],
		Timeout: defaultCommandTimeout,
	}, nil
}

// Execute runs the command with the description on stdin. The combined
// output is returned even on a non-zero exit so the verifier can read the
// tool's error text.
func (e *CommandExecutor) Execute(ctx context.Context, description string) (string, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.Bin, e.Args...)
	cmd.Stdin = strings.NewReader(description)

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))

	if cctx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("executor timed out after %s", timeout)
	}
	if err != nil {
		if output == "" {
			return "", fmt.Errorf("executor failed: %w", err)
		}
		// Tool ran and reported its own error; hand the text to the verifier.
		return output, nil
	}
	return output, nil
}
