package storage

import (
	"Attendify/storage/database"
	"Attendify/storage/mq"
	"Attendify/storage/redis"
)

// Init 统一初始化存储层：数据库 -> Redis -> MQ
func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	return mq.Init()
}
