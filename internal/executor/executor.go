// Package executor wraps the opaque external tools that carry out
// extracted tasks. The pipeline hands an executor a task description and
// gets back an unstructured result; deciding whether that result means
// success is the verifier's job, not ours.
package executor

import (
	"context"

	"github.com/haider984/codsy/internal/models"
)

// Executor performs the actual GitHub/Jira action for a task description
// and returns the raw, unclassified result.
type Executor interface {
	Execute(ctx context.Context, description string) (string, error)
}

// Registry is the per-platform dispatch table.
type Registry map[models.Platform]Executor

// For returns the executor registered for a platform.
func (r Registry) For(platform models.Platform) (Executor, bool) {
	exec, ok := r[platform]
	return exec, ok
}
