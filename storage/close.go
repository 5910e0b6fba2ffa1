package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Attendify/pkg/logger"
	"Attendify/storage/database"
	"Attendify/storage/mq"
	"Attendify/storage/redis"
)

// Close 按 MQ -> Redis -> Database 的顺序关闭，先停止投递，最后关闭发件箱表所在的数据库
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	steps := []struct {
		name  string
		close func(context.Context) error
	}{
		{"message queue", mq.Close},
		{"redis", redis.Close},
		{"database", database.Close},
	}
	for _, s := range steps {
		if err := s.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage", zap.String("component", s.name), zap.Error(err))
			continue
		}
		logger.Logger.Info("Storage closed", zap.String("component", s.name))
	}
}
