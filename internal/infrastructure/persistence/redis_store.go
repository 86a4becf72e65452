package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each namespace blob under one Redis key.
type RedisStore struct {
	r      redis.Cmdable
	prefix string
}

func NewRedisStore(r redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{r: r, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	val, err := s.r.Get(ctx, namespacedKey(s.prefix, namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis load %s: %w", namespace, err)
	}
	return val, true, nil
}

func (s *RedisStore) Save(ctx context.Context, namespace string, data []byte) error {
	if err := s.r.Set(ctx, namespacedKey(s.prefix, namespace), data, 0).Err(); err != nil {
		return fmt.Errorf("redis save %s: %w", namespace, err)
	}
	return nil
}

var _ ports.PersistenceAdapter = (*RedisStore)(nil)
