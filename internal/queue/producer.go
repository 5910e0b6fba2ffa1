package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// Outbox 邮件发件箱生产端。记录先落库，再发布消息；发布失败的记录由补投扫描重新发布
type Outbox struct {
	store     OutboxStore
	publisher Publisher
	locker    Locker
	logger    *zap.Logger
	newID     func() string
	queue     string
}

func NewOutbox(store OutboxStore, publisher Publisher, queue string, logger *zap.Logger) *Outbox {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{
		store:     store,
		publisher: publisher,
		queue:     queue,
		logger:    logger,
		newID:     func() string { return "mail_" + uuid.NewString() },
	}
}

// WithLocker 设置补投扫描使用的分布式锁
func (o *Outbox) WithLocker(l Locker) *Outbox {
	o.locker = l
	return o
}

// Enqueue 创建待发送记录并发布到发件箱队列
func (o *Outbox) Enqueue(ctx context.Context, to, subject, body string, origin model.MailOrigin) (*model.MailDelivery, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, errors.Validation("to", "Recipient is required")
	}
	if origin == "" {
		origin = model.MailOriginFallback
	}

	d := &model.MailDelivery{
		MessageID: o.newID(),
		Recipient: to,
		Subject:   subject,
		Body:      body,
		Origin:    origin,
		Status:    model.MailStatusPending,
	}
	if err := o.store.Create(ctx, d); err != nil {
		o.logger.Error("Failed to create mail delivery",
			zap.String("recipient", to),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", errors.OutboxUnavailable, err)
	}

	if err := o.publish(ctx, d); err != nil {
		// 记录已落库，补投扫描会再次发布
		o.logger.Warn("Failed to publish mail delivery, will retry on next sweep",
			zap.String("message_id", d.MessageID),
			zap.Int64("delivery_id", d.ID),
			zap.Error(err),
		)
		return d, nil
	}

	o.logger.Info("Mail delivery queued",
		zap.String("message_id", d.MessageID),
		zap.Int64("delivery_id", d.ID),
		zap.String("origin", string(origin)),
	)
	return d, nil
}

func (o *Outbox) publish(ctx context.Context, d *model.MailDelivery) error {
	return o.publisher.Publish(ctx, o.queue, model.MailOutboxMessage{
		MessageID:  d.MessageID,
		DeliveryID: d.ID,
	})
}

// RequeuePending 先回收卡在 processing 的记录，再重新发布长时间停留在 pending 的记录，返回发布条数
func (o *Outbox) RequeuePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if o.locker != nil {
		ok, err := o.locker.TryLock(ctx, requeueLock, time.Minute)
		if err != nil {
			return 0, fmt.Errorf("acquire requeue lock: %w", err)
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := o.locker.Unlock(context.WithoutCancel(ctx), requeueLock); err != nil {
				o.logger.Warn("Failed to release requeue lock", zap.Error(err))
			}
		}()
	}

	if n, err := o.store.Reclaim(ctx, stuckAfter); err != nil {
		o.logger.Warn("Failed to reclaim stuck mail deliveries", zap.Error(err))
	} else if n > 0 {
		o.logger.Warn("Reclaimed stuck mail deliveries", zap.Int64("count", n))
	}

	stale, err := o.store.Stale(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range stale {
		if err := o.publish(ctx, &stale[i]); err != nil {
			o.logger.Warn("Failed to republish mail delivery",
				zap.Int64("delivery_id", stale[i].ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}
	if published > 0 {
		o.logger.Info("Republished pending mail deliveries", zap.Int("count", published))
	}
	return published, nil
}
