package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisUsedPortStore keeps the used-port set as a JSON-encoded int slice
// under a single Redis key, shared by every replica. It performs no locking
// itself; callers bracket Get/Set with the external Lock.
type RedisUsedPortStore struct {
	client *redis.Client
	key    string
}

// NewRedisUsedPortStore returns a store over the given key.
func NewRedisUsedPortStore(client *redis.Client, key string) *RedisUsedPortStore {
	return &RedisUsedPortStore{client: client, key: key}
}

// Get implements UsedPortStore.Get.
func (s *RedisUsedPortStore) Get(ctx context.Context) ([]int, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read used ports: %w", err)
	}

	var ports []int
	if err := json.Unmarshal(val, &ports); err != nil {
		return nil, fmt.Errorf("decode used ports: %w", err)
	}
	return ports, nil
}

// Set implements UsedPortStore.Set.
func (s *RedisUsedPortStore) Set(ctx context.Context, ports []int) error {
	data, err := json.Marshal(ports)
	if err != nil {
		return fmt.Errorf("encode used ports: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write used ports: %w", err)
	}
	return nil
}
