package scheduler

import (
	"context"
	"time"

	redisclient "github.com/vietddude/vaultflow/internal/infra/redis"
)

// Callback operation names. The argument layout is owned by the registered
// handler: a single vault id for OpExecuteVault, a comma-joined id list for
// OpExecuteBatch.
const (
	OpExecuteVault = "execute_vault"
	OpExecuteBatch = "execute_batch"
)

// Scheduler arranges a self-referential future invocation. Fire and forget:
// the caller does not block, receives no completion signal, and the callback
// fires at or after the requested time, never exactly at it.
//
// HasPendingCallback lets a recovery path check whether an invocation chain
// for an op is already queued before starting another one.
type Scheduler interface {
	ArrangeCallback(ctx context.Context, after time.Duration, op, arg string) error
	HasPendingCallback(ctx context.Context, op string) (bool, error)
}

// RedisScheduler implements Scheduler on the durable callback queue, so
// pending invocations survive process restarts.
type RedisScheduler struct {
	queue *redisclient.Client
	now   func() time.Time
}

// NewRedisScheduler creates a scheduler backed by the Redis callback queue.
func NewRedisScheduler(queue *redisclient.Client) *RedisScheduler {
	return &RedisScheduler{queue: queue, now: time.Now}
}

// ArrangeCallback enqueues one deferred invocation due after the given delay.
func (s *RedisScheduler) ArrangeCallback(ctx context.Context, after time.Duration, op, arg string) error {
	return s.queue.PushCallback(ctx, s.now().Add(after), op, arg)
}

// HasPendingCallback reports whether any callback for op is still queued.
func (s *RedisScheduler) HasPendingCallback(ctx context.Context, op string) (bool, error) {
	return s.queue.HasPending(ctx, op)
}
