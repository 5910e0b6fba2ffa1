package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 通过 SetNX 实现的分布式锁，多个 worker 只有一个执行补投扫描
const lockPrefix = "lock"

type Locker struct {
	client goredis.UniversalClient
	prefix string
}

func NewLocker(client goredis.UniversalClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, Key(l.prefix, lockPrefix, key), 1, ttl).Result()
}

func (l *Locker) Unlock(ctx context.Context, key string) error {
	return l.client.Del(ctx, Key(l.prefix, lockPrefix, key)).Err()
}
