package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"Attendify/config"
	"Attendify/pkg/logger"
	redisotel "Attendify/pkg/redis"
)

var (
	client *goredis.Client
	once   sync.Once
	err    error
)

func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		client = goredis.NewClient(&goredis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MinIdleConns: 5,
			MaxRetries:   3,
		})
		client.AddHook(redisotel.NewTracingHook(cfg.ServiceName, cfg.RedisDB))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err = client.Ping(ctx).Err(); err != nil {
			return
		}
		logger.Logger.Info("Redis connected",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
		)
	})

	return err
}

func Client() *goredis.Client {
	if client == nil {
		panic("Redis client not init")
	}
	return client
}

// Prefix 键前缀
func Prefix() string {
	if config.Cfg.RedisPrefix == "" {
		return "attendify"
	}
	return config.Cfg.RedisPrefix
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
