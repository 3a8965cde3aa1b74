package recorder

import (
	"context"
	"sync"
)

// UsedPortStore persists the set of ports currently allocated to in-progress
// recordings. It is the single piece of durable shared state. The store has
// no atomic read-modify-write; every Get/Set pair must run under the Lock.
// Implementations can be in-memory or remote.
type UsedPortStore interface {
	// Get returns the current used-port set. An unset store reads as empty.
	Get(ctx context.Context) ([]int, error)

	// Set replaces the used-port set.
	Set(ctx context.Context, ports []int) error
}

// MemoryUsedPortStore is an in-memory UsedPortStore for single-replica
// deployments and tests.
type MemoryUsedPortStore struct {
	mu    sync.Mutex
	ports []int
}

// NewMemoryUsedPortStore returns a new empty in-memory store.
func NewMemoryUsedPortStore() *MemoryUsedPortStore {
	return &MemoryUsedPortStore{}
}

// Get implements UsedPortStore.Get.
func (s *MemoryUsedPortStore) Get(ctx context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.ports))
	copy(out, s.ports)
	return out, nil
}

// Set implements UsedPortStore.Set.
func (s *MemoryUsedPortStore) Set(ctx context.Context, ports []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports = make([]int, len(ports))
	copy(s.ports, ports)
	return nil
}
