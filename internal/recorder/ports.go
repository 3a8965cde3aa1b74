package recorder

import (
	"context"
	"fmt"
	"sort"
)

// PortPool allocates exclusive listener ports from a fixed candidate set.
// The used-port set lives in the UsedPortStore; every mutation is a
// read-compute-write sequence bracketed by the Lock, which serializes
// allocations and releases across all callers sharing the lock and store.
type PortPool struct {
	pool  []int
	lock  Lock
	store UsedPortStore
}

// NewPortPool returns a pool over the given candidate ports. Candidates are
// deduplicated and sorted so allocation order is deterministic.
func NewPortPool(candidates []int, lock Lock, store UsedPortStore) *PortPool {
	seen := make(map[int]bool, len(candidates))
	pool := make([]int, 0, len(candidates))
	for _, port := range candidates {
		if !seen[port] {
			seen[port] = true
			pool = append(pool, port)
		}
	}
	sort.Ints(pool)

	return &PortPool{pool: pool, lock: lock, store: store}
}

// Allocate reserves the smallest free port and records it as used before the
// lock is released. It returns ErrNoPortsAvailable when the pool is
// exhausted.
func (p *PortPool) Allocate(ctx context.Context) (int, error) {
	release, err := p.lock.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	used, err := p.store.Get(ctx)
	if err != nil {
		return 0, err
	}

	inUse := make(map[int]bool, len(used))
	for _, port := range used {
		inUse[port] = true
	}

	for _, port := range p.pool {
		if inUse[port] {
			continue
		}
		if err := p.store.Set(ctx, append(used, port)); err != nil {
			return 0, err
		}
		return port, nil
	}

	return 0, ErrNoPortsAvailable
}

// Release removes the port from the used set. Releasing a port that is not
// marked used returns ErrPortNotAllocated: a double release is an accounting
// bug and must not pass silently.
func (p *PortPool) Release(ctx context.Context, port int) error {
	release, err := p.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	used, err := p.store.Get(ctx)
	if err != nil {
		return err
	}

	remaining := used[:0]
	found := false
	for _, u := range used {
		if u == port {
			found = true
			continue
		}
		remaining = append(remaining, u)
	}
	if !found {
		return fmt.Errorf("%w: %d", ErrPortNotAllocated, port)
	}

	return p.store.Set(ctx, remaining)
}

// InUse returns the current used-port count for metrics. It reads a single
// snapshot outside the lock; the value may be momentarily stale.
func (p *PortPool) InUse(ctx context.Context) (int, error) {
	used, err := p.store.Get(ctx)
	if err != nil {
		return 0, err
	}
	return len(used), nil
}

// Size returns the number of candidate ports in the pool.
func (p *PortPool) Size() int {
	return len(p.pool)
}
