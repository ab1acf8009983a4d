package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"self-heal-api/internal/infrastructure/persistence/redis"
	"self-heal-api/internal/interfaces/http/dto"
	apperrors "self-heal-api/pkg/errors"
	"self-heal-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按应用维度的滑动窗口限流
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}

	return func(c *gin.Context) {
		appID := c.GetString("app_id")
		if appID == "" {
			appID = c.GetHeader(AppIDHeader)
		}
		if appID == "" {
			appID = "ip:" + c.ClientIP()
		}

		key := redis.BuildRateLimitKey(appID, c.FullPath())
		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerMinute, time.Minute)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}
		if !allowed {
			dto.AppError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
