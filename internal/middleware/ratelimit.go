package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"Attendify/internal/cache"
	"Attendify/pkg/errors"
	"Attendify/pkg/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	KeyPrefix   string
	// 是否按用户ID限流（需要认证）
	ByUserID bool
	ByIP     bool
	// 超过限制后禁止访问的时间（秒）
	BlockDuration int
}

// LoginRateLimitConfig 登录按 IP 限流，失败过多后锁定 15 分钟
var LoginRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   5,
	KeyPrefix:     "rate:login",
	ByIP:          true,
	BlockDuration: 900,
}

// DefaultRateLimitConfig 已登录接口的通用限流，每秒上限由配置换算
func DefaultRateLimitConfig(rps int) RateLimitConfig {
	if rps <= 0 {
		rps = 20
	}
	return RateLimitConfig{
		Window:        10,
		MaxRequests:   rps * 10,
		KeyPrefix:     "rate:api",
		ByUserID:      true,
		ByIP:          true,
		BlockDuration: 60,
	}
}

// RateLimiter 限流器
type RateLimiter struct {
	client goredis.UniversalClient
	prefix string
	config RateLimitConfig
}

func NewRateLimiter(client goredis.UniversalClient, prefix string, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		config: config,
	}
}

// identifier 优先按用户，其次按 IP
func (rl *RateLimiter) identifier(ctx context.Context, c *app.RequestContext) string {
	if rl.config.ByUserID {
		if userID, exists := GetUserID(ctx, c); exists {
			return "user:" + userID
		}
	}
	if rl.config.ByIP {
		return "ip:" + c.ClientIP()
	}
	return "global"
}

func (rl *RateLimiter) windowKey(id string) string {
	return cache.Key(rl.prefix, rl.config.KeyPrefix, id)
}

func (rl *RateLimiter) blockKey(id string) string {
	return cache.Key(rl.prefix, rl.config.KeyPrefix, "block", id)
}

// Allow 滑动窗口：zset 里保留窗口内的请求时间戳
func (rl *RateLimiter) Allow(ctx context.Context, id string) (bool, int, error) {
	key := rl.windowKey(id)
	now := time.Now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) Block(ctx context.Context, id string) error {
	return rl.client.Set(ctx, rl.blockKey(id), "1", time.Duration(rl.config.BlockDuration)*time.Second).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, id string) (bool, error) {
	result, err := rl.client.Exists(ctx, rl.blockKey(id)).Result()
	return result > 0, err
}

// RateLimitMiddleware redis 不可用时放行，只记录日志
func RateLimitMiddleware(limiter *RateLimiter, logger *zap.Logger) app.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := limiter.config

	return func(ctx context.Context, c *app.RequestContext) {
		id := limiter.identifier(ctx, c)

		blocked, err := limiter.IsBlocked(ctx, id)
		if err != nil {
			logger.Warn("Failed to check block status", zap.String("key", cfg.KeyPrefix), zap.Error(err))
			c.Next(ctx)
			return
		}
		if blocked {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		allowed, count, err := limiter.Allow(ctx, id)
		if err != nil {
			logger.Warn("Failed to check rate limit", zap.String("key", cfg.KeyPrefix), zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := cfg.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			if err := limiter.Block(ctx, id); err != nil {
				logger.Error("Failed to block client", zap.String("id", id), zap.Error(err))
			}
			logger.Info("Rate limit exceeded", zap.String("key", cfg.KeyPrefix), zap.String("id", id))
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
