package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 50 * time.Millisecond
	lockReleaseGrace = 2 * time.Second
)

// unlockScript deletes the lock key only if the caller still owns it, so a
// slow holder whose TTL expired cannot release a lock re-acquired elsewhere.
var unlockScript = redis.NewScript(
	`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`,
)

// RedisLock is a Redis-backed Lock shared by all replicas that point at the
// same key. Acquisition is SET NX PX with an owner token, polled until the
// key frees or ctx is done. The TTL bounds how long a crashed holder can
// block everyone else.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLock returns a lock over the given key with default TTL and retry
// interval.
func NewRedisLock(client *redis.Client, key string) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    defaultLockTTL,
		retry:  defaultLockRetry,
	}
}

// Acquire implements Lock.Acquire.
func (l *RedisLock) Acquire(ctx context.Context) (func(), error) {
	owner := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %q: %w", l.key, err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	release := func() {
		// Detached from the caller's ctx: the lock must be released even
		// when the request context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseGrace)
		defer cancel()
		_ = unlockScript.Run(ctx, l.client, []string{l.key}, owner).Err()
	}
	return release, nil
}
