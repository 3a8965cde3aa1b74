package recorder

import "context"

// Lock is the mutual exclusion guarding all reads and writes of the used-port
// set. The store provides no atomic read-modify-write, so the lock must be
// held for the full read-compute-write sequence. Implementations may be
// in-process or distributed across replicas sharing the store.
type Lock interface {
	// Acquire blocks until the lock is held or ctx is done. On success it
	// returns a release function that must be called on every exit path.
	Acquire(ctx context.Context) (release func(), err error)
}

// MemoryLock is an in-process Lock for single-replica deployments and tests.
type MemoryLock struct {
	ch chan struct{}
}

// NewMemoryLock returns an unlocked in-process lock.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{ch: make(chan struct{}, 1)}
}

// Acquire implements Lock.Acquire.
func (l *MemoryLock) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return func() { <-l.ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
