// Package queue 邮件发件箱：入队、补投与消费
package queue

import (
	"context"
	"time"

	"Attendify/internal/model"
)

const (
	// DefaultQueue 发件箱队列名
	DefaultQueue = "mail.outbox"
	// DefaultMaxRetries 超过后投递记为失败
	DefaultMaxRetries = 3

	// processingTTL 要短于 stuckAfter，回收后重新发布的消息才不会被旧标记挡掉
	processingTTL = 5 * time.Minute
	processedTTL  = 48 * time.Hour
	// stuckAfter 停留在 processing 超过这个时间视为 worker 中途退出
	stuckAfter = 10 * time.Minute
	requeueLock   = "mail:requeue"
)

// Publisher 将 JSON 消息投递到队列
type Publisher interface {
	Publish(ctx context.Context, queue string, body interface{}) error
}

// OutboxStore 生产端使用的投递记录存储
type OutboxStore interface {
	Create(ctx context.Context, d *model.MailDelivery) error
	Stale(ctx context.Context, olderThan time.Duration, limit int) ([]model.MailDelivery, error)
	Reclaim(ctx context.Context, olderThan time.Duration) (int64, error)
}

// DeliveryStore 消费端使用的投递记录存储
type DeliveryStore interface {
	GetByID(ctx context.Context, id int64) (*model.MailDelivery, error)
	MarkProcessing(ctx context.Context, id int64) (bool, error)
	MarkSuccess(ctx context.Context, id int64) error
	MarkFailure(ctx context.Context, id int64, cause error, maxRetries int) (model.MailDeliveryStatus, error)
}

// Marker 消息幂等标记
type Marker interface {
	TryMarkProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, messageID string) error
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error
}

// Locker 多 worker 间互斥
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Sender SMTP 发送
type Sender interface {
	Send(ctx context.Context, relay model.SMTP, d *model.MailDelivery) error
}

// RelayProvider 读取当前的 SMTP 中继设置
type RelayProvider interface {
	Relay(ctx context.Context) (model.SMTP, error)
}
