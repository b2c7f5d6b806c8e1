// Package distlock provides a Redis-backed mutual-exclusion lock used by
// the outbox relay (internal/outboxrelay) to elect a single active relay
// instance across horizontally scaled Orders/Payments replicas. Only the
// replica holding the lock scans and publishes outbox rows; the others
// poll for the lock instead of draining outbox concurrently, which would
// double-publish events.
package distlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	extendLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// Lock is a single-holder mutual exclusion lock keyed by name.
type Lock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// New creates a lock handle. Each handle has its own fencing value, so one
// replica's Release can never release a lock another replica holds.
func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// TryAcquire attempts to acquire the lock once, returning immediately.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	l.acquired = success
	return success, nil
}

// Extend refreshes the lock's TTL. Callers hold the lock for the lifetime
// of a long-running task (the relay's main loop) and extend it periodically
// instead of acquiring once with a very long TTL.
func (l *Lock) Extend(ctx context.Context, additionalTTL time.Duration) error {
	if !l.acquired {
		return errors.New("lock not acquired")
	}

	result, err := extendLockScript.Run(ctx, l.client, []string{l.key}, l.value, additionalTTL.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	if val, ok := result.(int64); !ok || val == 0 {
		l.acquired = false
		return errors.New("lock not held or expired")
	}
	return nil
}

// Release gives up the lock. A no-op if not currently held.
func (l *Lock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if val, ok := result.(int64); !ok || val == 0 {
		return errors.New("lock not held or already released")
	}
	l.acquired = false
	return nil
}

func (l *Lock) IsAcquired() bool {
	return l.acquired
}
