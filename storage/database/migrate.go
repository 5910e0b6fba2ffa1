package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Attendify/internal/model"
	"Attendify/pkg/logger"
)

// Migrate 创建发件箱表
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")
	if err := db.AutoMigrate(&model.MailDelivery{}); err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}
	logger.Logger.Info("Database migration completed successfully")
	return nil
}
