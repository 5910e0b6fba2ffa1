package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	messageProcessedPrefix = "message:processed"
	processedTTL           = 48 * time.Hour
)

// MessageMarks 队列消息的幂等标记
type MessageMarks struct {
	client goredis.UniversalClient
	prefix string
}

func NewMessageMarks(client goredis.UniversalClient, prefix string) *MessageMarks {
	return &MessageMarks{client: client, prefix: prefix}
}

// TryMarkProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func (m *MessageMarks) TryMarkProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = processedTTL
	}
	ok, err := m.client.SetNX(ctx, Key(m.prefix, messageProcessedPrefix, messageID), "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// Unmark 处理失败时取消标记，允许重试
func (m *MessageMarks) Unmark(ctx context.Context, messageID string) error {
	return m.client.Del(ctx, Key(m.prefix, messageProcessedPrefix, messageID)).Err()
}

// MarkProcessed 处理完成，延长 TTL
func (m *MessageMarks) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return m.client.Set(ctx, Key(m.prefix, messageProcessedPrefix, messageID), "completed", ttl).Err()
}
