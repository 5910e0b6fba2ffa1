package mq

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"Attendify/pkg/errors"
	"Attendify/pkg/logger"
)

type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Handler       MessageHandler
	Queue         string
	ConsumerTag   string
	PrefetchCount int
}

// Consume 阻塞消费直到 ctx 取消或 channel 关闭。
// 处理成功或返回 SkipMessageError 时 ack，其他错误 nack 并重新入队
func Consume(ctx context.Context, opts ConsumeOptions) error {
	c := Connection()
	if c == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(opts.Queue, opts.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(opts.ConsumerTag, false)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel for %s closed", opts.Queue)
			}

			msgCtx, finish := instr.StartConsume(ctx, opts.Queue, msg)
			err := opts.Handler(msgCtx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
				finish(nil)
			case errors.IsSkipMessageError(err):
				logger.Logger.Info("Message skipped",
					zap.String("queue", opts.Queue),
					zap.String("reason", err.Error()),
				)
				_ = msg.Ack(false)
				finish(nil)
			default:
				logger.Logger.Error("Failed to process message",
					zap.String("queue", opts.Queue),
					zap.String("consumer_tag", opts.ConsumerTag),
					zap.Error(err),
				)
				_ = msg.Nack(false, true)
				finish(err)
			}
		}
	}
}
