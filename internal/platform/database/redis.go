package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
)

// RDB 是一个全局的Redis客户端实例，未配置Redis时为nil
var RDB *redis.Client

// InitRedis 初始化与Redis数据库的连接。地址为空时跳过。
// 启动时连接失败不再panic：服务以降级状态启动，由健康检查器负责恢复。
func InitRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if cfg.Address == "" {
		log.Info("未配置Redis，跳过连接")
		return nil
	}

	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := RDB.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis暂不可用，以降级状态启动", zap.String("address", cfg.Address), zap.Error(err))
		UpdateStatus(false)
		return RDB
	}

	UpdateStatus(true)
	log.Info("Redis 连接成功！", zap.String("address", cfg.Address))
	return RDB
}

// PingRedis 检查一次Redis连通性
func PingRedis(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return fmt.Errorf("redis未配置")
	}
	return rdb.Ping(ctx).Err()
}
