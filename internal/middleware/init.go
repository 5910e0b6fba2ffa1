package middleware

import (
	"go.uber.org/zap"

	"Attendify/pkg/token"
)

// Init 初始化需要预先构建的中间件
func Init(g *token.Generator, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := initAuthMiddleware(g); err != nil {
		logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	logger.Info("All middlewares initialized successfully")
	return nil
}
