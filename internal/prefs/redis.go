package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// Breaker 熔断保护，Redis 不可用时快速失败
type Breaker interface {
	Call(ctx context.Context, operation func() error) error
}

// RedisStore 基于 Redis 的持久化偏好，不设置过期时间
type RedisStore struct {
	client  goredis.UniversalClient
	breaker Breaker
	prefix  string
}

// NewRedisStore prefix 形如 "attendify:prefs"，breaker 可以为空
func NewRedisStore(client goredis.UniversalClient, prefix string, breaker Breaker) *RedisStore {
	return &RedisStore{client: client, prefix: strings.TrimSuffix(prefix, ":"), breaker: breaker}
}

func (r *RedisStore) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisStore) call(ctx context.Context, op func() error) error {
	if r.breaker == nil {
		return op()
	}
	return r.breaker.Call(ctx, op)
}

func (r *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var (
		data  string
		found bool
	)
	err := r.call(ctx, func() error {
		v, err := r.client.Get(ctx, r.key(key)).Result()
		if err == goredis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal preference %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal preference %s: %w", key, err)
	}
	return r.call(ctx, func() error {
		return r.client.Set(ctx, r.key(key), raw, 0).Err()
	})
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.call(ctx, func() error {
		return r.client.Del(ctx, r.key(key)).Err()
	})
}
