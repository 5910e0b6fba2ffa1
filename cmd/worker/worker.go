package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"Attendify/config"
	"Attendify/internal/cache"
	"Attendify/internal/mailer"
	"Attendify/internal/queue"
	"Attendify/internal/repository"
	"Attendify/internal/schedule"
	"Attendify/pkg/logger"
	"Attendify/pkg/metrics"
	"Attendify/pkg/otel"
	"Attendify/storage"
	"Attendify/storage/database"
	"Attendify/storage/mq"
	"Attendify/storage/redis"
)

const (
	requeueInterval = time.Minute
	requeueAge      = 2 * time.Minute
	requeueBatch    = 100
)

func main() {
	cfg := &config.Cfg
	if err := logger.Init(cfg.Logging("worker")); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if cfg.OTelEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, cfg.Telemetry("worker"))
		if err != nil {
			log.Warn("Failed to initialize OpenTelemetry, continuing without export", zap.Error(err))
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = shutdown(sctx)
			}()
		}
	}
	if err := metrics.InitMetrics(); err != nil {
		log.Warn("Failed to initialize metrics", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	rdb := redis.Client()
	prefix := redis.Prefix()
	deliveries := repository.NewMailDeliveryRepository(database.DB())

	consumer := queue.NewMailConsumer(queue.ConsumerOptions{
		Store:      deliveries,
		Marks:      cache.NewMessageMarks(rdb, prefix),
		Sender:     mailer.NewSMTPSender(mailer.DefaultDialer),
		Relays:     cache.NewSnapshotCache(rdb, prefix, cache.NewCircuitBreaker("relay", 5, 30*time.Second, log)),
		Logger:     log.Named("mail"),
		MaxRetries: cfg.MailMaxRetries,
	})

	// 发布失败或消费者宕机留下的待发记录，定期重新投递
	outbox := queue.NewOutbox(deliveries, mq.Publisher{}, cfg.MailOutboxQueue, log.Named("outbox")).
		WithLocker(cache.NewLocker(rdb, prefix))
	go schedule.RunEvery(ctx, "mail-requeue", requeueInterval, log, func(ctx context.Context) error {
		_, err := outbox.RequeuePending(ctx, requeueAge, requeueBatch)
		return err
	})

	log.Info("Worker service starting",
		zap.String("service", cfg.ServiceName),
		zap.String("queue", cfg.MailOutboxQueue),
		zap.String("environment", cfg.Environment),
	)

	err := mq.Consume(ctx, mq.ConsumeOptions{
		Handler:       consumer.Handle,
		Queue:         cfg.MailOutboxQueue,
		ConsumerTag:   "attendify-mail",
		PrefetchCount: 4,
	})
	if err != nil && ctx.Err() == nil {
		log.Error("Mail consumer stopped", zap.Error(err))
	}

	log.Info("Worker service shutting down gracefully")
}
