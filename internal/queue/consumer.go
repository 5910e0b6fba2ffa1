package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
	"Attendify/pkg/metrics"
)

type ConsumerOptions struct {
	Store      DeliveryStore
	Marks      Marker
	Sender     Sender
	Relays     RelayProvider
	Logger     *zap.Logger
	MaxRetries int
}

// MailConsumer 发件箱消费端。
// 返回 nil 表示 ack；SkipMessageError 同样 ack 且不再重试；其他错误 nack 并重新入队
type MailConsumer struct {
	store      DeliveryStore
	marks      Marker
	sender     Sender
	relays     RelayProvider
	logger     *zap.Logger
	maxRetries int
}

func NewMailConsumer(opts ConsumerOptions) *MailConsumer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	return &MailConsumer{
		store:      opts.Store,
		marks:      opts.Marks,
		sender:     opts.Sender,
		relays:     opts.Relays,
		logger:     opts.Logger,
		maxRetries: opts.MaxRetries,
	}
}

// Handle 处理一条发件箱消息
func (c *MailConsumer) Handle(ctx context.Context, body []byte) error {
	var msg model.MailOutboxMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("Malformed mail outbox message", zap.Error(err))
		return &errors.SkipMessageError{Reason: "malformed mail outbox message"}
	}

	// 【幂等性检查】使用 SETNX 原子性地检查并标记消息正在处理
	marked, err := c.marks.TryMarkProcessing(ctx, msg.MessageID, processingTTL)
	if err != nil {
		c.logger.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	} else if !marked {
		c.logger.Info("Message already processed or being processed, skipping",
			zap.String("message_id", msg.MessageID),
		)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
	}

	d, err := c.store.GetByID(ctx, msg.DeliveryID)
	if errors.Is(err, errors.NotFound) {
		c.markProcessed(ctx, msg.MessageID)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("delivery %d not found", msg.DeliveryID)}
	}
	if err != nil {
		c.unmark(ctx, msg.MessageID)
		return fmt.Errorf("load mail delivery: %w", err)
	}
	if d.Status == model.MailStatusSuccess || d.Status == model.MailStatusFailed {
		c.markProcessed(ctx, msg.MessageID)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("delivery %d already %s", d.ID, d.Status)}
	}

	claimed, err := c.store.MarkProcessing(ctx, d.ID)
	if err != nil {
		c.unmark(ctx, msg.MessageID)
		return err
	}
	if !claimed {
		// 另一个 worker 正在发送；若它已退出，补投扫描会把记录放回 pending
		c.unmark(ctx, msg.MessageID)
		c.logger.Info("Mail delivery claimed elsewhere, skipping",
			zap.String("message_id", msg.MessageID),
			zap.Int64("delivery_id", d.ID),
		)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("delivery %d already claimed", d.ID)}
	}
	return c.deliver(ctx, d)
}

func (c *MailConsumer) deliver(ctx context.Context, d *model.MailDelivery) error {
	start := time.Now()
	ctx, span := otel.Tracer("attendify.mail").Start(ctx, "mail.deliver")
	span.SetAttributes(
		attribute.Int64("mail.delivery_id", d.ID),
		attribute.String("mail.origin", string(d.Origin)),
		attribute.Int("mail.retry_count", d.RetryCount),
	)
	defer span.End()

	relay, err := c.relays.Relay(ctx)
	if err == nil {
		err = c.sender.Send(ctx, relay, d)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.fail(ctx, d, err, time.Since(start))
	}

	if err := c.store.MarkSuccess(ctx, d.ID); err != nil {
		// 邮件已经发出，不能再重试
		c.logger.Error("Failed to record mail delivery success",
			zap.Int64("delivery_id", d.ID),
			zap.Error(err),
		)
	}
	c.markProcessed(ctx, d.MessageID)
	metrics.RecordMailDelivery(ctx, string(d.Origin), string(model.MailStatusSuccess), time.Since(start).Seconds())

	c.logger.Info("Mail delivered",
		zap.String("message_id", d.MessageID),
		zap.Int64("delivery_id", d.ID),
		zap.String("recipient", d.Recipient),
	)
	return nil
}

func (c *MailConsumer) fail(ctx context.Context, d *model.MailDelivery, cause error, took time.Duration) error {
	status, err := c.store.MarkFailure(ctx, d.ID, cause, c.maxRetries)
	if err != nil {
		c.unmark(ctx, d.MessageID)
		return fmt.Errorf("record mail failure: %w", err)
	}
	metrics.RecordMailDelivery(ctx, string(d.Origin), string(status), took.Seconds())

	if status == model.MailStatusFailed {
		c.markProcessed(ctx, d.MessageID)
		c.logger.Error("Mail delivery failed permanently",
			zap.String("message_id", d.MessageID),
			zap.Int64("delivery_id", d.ID),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(cause),
		)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("delivery %d exhausted retries", d.ID)}
	}

	metrics.RecordMailRetry(ctx)
	c.unmark(ctx, d.MessageID)
	c.logger.Warn("Mail delivery failed, will retry",
		zap.String("message_id", d.MessageID),
		zap.Int64("delivery_id", d.ID),
		zap.Error(cause),
	)
	return fmt.Errorf("send mail: %w", cause)
}

func (c *MailConsumer) markProcessed(ctx context.Context, messageID string) {
	if err := c.marks.MarkProcessed(ctx, messageID, processedTTL); err != nil {
		c.logger.Warn("Failed to mark message as processed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

func (c *MailConsumer) unmark(ctx context.Context, messageID string) {
	if err := c.marks.Unmark(ctx, messageID); err != nil {
		c.logger.Warn("Failed to unmark message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
