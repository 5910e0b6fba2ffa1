package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"Attendify/config"
	"Attendify/pkg/logger"
	pkgmq "Attendify/pkg/mq"
)

var (
	conn     *amqp.Connection
	connMu   sync.RWMutex
	instr    *pkgmq.Instrumentation
	initOnce sync.Once
)

func Init() error {
	initOnce.Do(func() {
		instr = pkgmq.NewInstrumentation(config.Cfg.ServiceName)
	})

	c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	connMu.Lock()
	conn = c
	connMu.Unlock()

	if err := DeclareQueue(config.Cfg.MailOutboxQueue); err != nil {
		return err
	}

	logger.Logger.Info("RabbitMQ connected",
		zap.String("addr", config.Cfg.RabbitMQAddr),
		zap.String("vhost", config.Cfg.RabbitMQVhost),
	)
	return nil
}

// Connection 当前连接，未初始化时为 nil
func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

// DeclareQueue 声明持久化队列
func DeclareQueue(name string) error {
	c := Connection()
	if c == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}
	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

func Close(ctx context.Context) error {
	closePublisher()

	connMu.Lock()
	c := conn
	conn = nil
	connMu.Unlock()
	if c == nil || c.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
