// Package lock provides the TTL-based mutual exclusion primitive that
// keeps concurrent pipeline workers from executing the same task or
// dispatching the same reply twice. A lock that is never released
// self-heals when its TTL expires; the cost is at most one redundant
// re-execution, not a stuck record.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/haider984/codsy/internal/models"
)

// DefaultTTL bounds lock leakage when a worker crashes mid-execution.
const DefaultTTL = 5 * time.Minute

// Locker is a set-if-absent-with-expiry mutual exclusion primitive.
type Locker interface {
	// Acquire attempts to take the lock. Returns false when another
	// holder owns it; that is contention, not an error.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lock if this locker still holds it. Releasing a
	// lock that expired and was re-acquired elsewhere is a no-op.
	Release(ctx context.Context, key string)
}

// TaskKey returns the lock key guarding execution of a single task.
func TaskKey(platform models.Platform, taskID string) string {
	return fmt.Sprintf("lock:task:%s:%s", platform, taskID)
}

// DispatchKey returns the lock key guarding reply delivery for a message.
func DispatchKey(mid string) string {
	return fmt.Sprintf("lock:dispatch:%s", mid)
}
