package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存TTL，较短时间避免长期占用
	emptyValueTTL = 5 * time.Minute
	// 防雪崩随机延迟范围
	breakerRandomDelayMax = 200 * time.Millisecond
)

// ProtectedCache 带空值保护、随机延迟和熔断的 JSON 缓存
type ProtectedCache struct {
	client    goredis.UniversalClient
	breaker   *CircuitBreaker
	prefix    string
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
	jitter    time.Duration
}

// NewProtectedCache 创建受保护的缓存实例，ttl 为 0 表示不过期
func NewProtectedCache(client goredis.UniversalClient, prefix, keyPrefix string, ttl time.Duration, breaker *CircuitBreaker) *ProtectedCache {
	return &ProtectedCache{
		client:    client,
		breaker:   breaker,
		prefix:    prefix,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
		jitter:    breakerRandomDelayMax,
	}
}

func (pc *ProtectedCache) key(key string) string {
	return Key(pc.prefix, pc.keyPrefix, key)
}

func (pc *ProtectedCache) call(ctx context.Context, op func() error) error {
	if pc.breaker == nil {
		return op()
	}
	return pc.breaker.Call(ctx, op)
}

// Set 设置缓存，nil 值写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	data := emptyValueFlag
	ttl := pc.emptyTTL
	if value != nil {
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
		data = string(b)
		ttl = pc.ttl
	}

	return pc.call(ctx, func() error {
		return pc.client.Set(ctx, pc.key(key), data, ttl).Err()
	})
}

// Get 获取缓存。命中空值标识时返回 true 且不修改 dest
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if err := pc.addBreakerDelay(ctx); err != nil {
		return false, err
	}

	var data string
	err := pc.call(ctx, func() error {
		v, err := pc.client.Get(ctx, pc.key(key)).Result()
		if err == goredis.Nil {
			return nil
		}
		data = v
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to get cache: %w", err)
	}
	if data == "" {
		return false, nil
	}
	if data == emptyValueFlag {
		return true, nil
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return pc.call(ctx, func() error {
		return pc.client.Del(ctx, pc.key(key)).Err()
	})
}

// addBreakerDelay 添加防雪崩随机延迟
func (pc *ProtectedCache) addBreakerDelay(ctx context.Context) error {
	if pc.jitter <= 0 {
		return nil
	}
	delay := time.Duration(rand.Int63n(int64(pc.jitter)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
