package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix は RedisStore のキーに付けるデフォルトの接頭辞です。
const DefaultRedisKeyPrefix = "gemini-image-editor:"

// RedisStore は Redis にレートリミット状態を保存する Store です。
// 複数のプロセスで同じ上限を共有したい場合に使います。
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore は client と接頭辞から RedisStore を作成します。
func NewRedisStore(client redis.Cmdable, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
