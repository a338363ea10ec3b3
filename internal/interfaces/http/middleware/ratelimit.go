// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/interfaces/http/dto"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每个客户端每秒请求数
	RequestsPerSecond int
	// Burst 突发容量，叠加在每秒请求数之上
	Burst int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按客户端 IP 的全局限流中间件
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 设置默认值
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	limit := cfg.RequestsPerSecond + max(cfg.Burst, 0)

	return func(c *gin.Context) {
		key := redis.BuildRateLimitKey("ip", c.ClientIP())
		if !allow(c, limiter, key, limit, time.Second) {
			return
		}
		c.Next()
	}
}

// GenerateRateLimit 按项目限制每分钟触发的生成与渲染次数
func GenerateRateLimit(perMinute int, limiter RateLimiter) gin.HandlerFunc {
	if perMinute <= 0 || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		projectID := c.Param("pid")
		if projectID == "" {
			c.Next()
			return
		}
		key := redis.BuildRateLimitKey("generate", projectID)
		if !allow(c, limiter, key, perMinute, time.Minute) {
			return
		}
		c.Next()
	}
}

// allow 检查限流，被拒绝时直接写出 429；限流器故障时放行
func allow(c *gin.Context, limiter RateLimiter, key string, limit int, window time.Duration) bool {
	ctx := c.Request.Context()
	allowed, err := limiter.Allow(ctx, key, limit, window)
	if err != nil {
		logger.Warn(ctx, "rate limiter unavailable", "key", key, "error", err.Error())
		return true
	}
	if !allowed {
		appErr := errors.ErrTooManyRequests.WithMessage("rate limit exceeded")
		c.AbortWithStatusJSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error:   &dto.ErrorDetail{ErrorCode: string(appErr.Code)},
			TraceID: c.GetString("trace_id"),
		})
		return false
	}
	return true
}
