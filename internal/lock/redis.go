package lock

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the stored token matches the
// caller's. Without the token check, a holder whose lock expired could
// delete a lock the next holder just acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements Locker over a shared Redis instance using
// SET NX PX with a per-acquisition random token.
type RedisLock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string // key -> token held by this instance
}

// NewRedisLock creates a Redis-backed locker.
func NewRedisLock(ctx context.Context, redisURL string) (*RedisLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisLockWithClient(client), nil
}

// NewRedisLockWithClient wraps an existing Redis client.
func NewRedisLockWithClient(client *redis.Client) *RedisLock {
	return &RedisLock{
		client: client,
		tokens: make(map[string]string),
	}
}

// Client exposes the underlying Redis client for collaborators that
// share the connection (rate limiting).
func (l *RedisLock) Client() *redis.Client {
	return l.client
}

// Close closes the Redis connection.
func (l *RedisLock) Close() error {
	return l.client.Close()
}

// Ping checks the Redis connection.
func (l *RedisLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Acquire takes the lock with SET NX and the given TTL.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	token := ulid.Make().String()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// Release frees the lock if this instance still holds it.
func (l *RedisLock) Release(ctx context.Context, key string) {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return
	}

	// Best effort: an expired lock is already gone, and the token guard
	// protects any new holder.
	_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
