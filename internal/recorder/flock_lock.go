package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const flockRetry = 50 * time.Millisecond

// FlockLock is a file-based Lock for deployments where replicas share a
// filesystem instead of Redis. Each Acquire opens its own descriptor so
// concurrent in-process callers are serialized by the kernel too.
type FlockLock struct {
	path string
}

// NewFlockLock returns a lock over the given lock file path.
func NewFlockLock(path string) *FlockLock {
	return &FlockLock{path: path}
}

// Acquire implements Lock.Acquire.
func (l *FlockLock) Acquire(ctx context.Context) (func(), error) {
	fl := flock.New(l.path)

	locked, err := fl.TryLockContext(ctx, flockRetry)
	if err != nil {
		return nil, fmt.Errorf("acquire lock file %q: %w", l.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire lock file %q: not acquired", l.path)
	}

	return func() { _ = fl.Unlock() }, nil
}
