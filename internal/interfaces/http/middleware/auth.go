// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"self-heal-api/internal/interfaces/http/dto"
	apperrors "self-heal-api/pkg/errors"
	"self-heal-api/pkg/logger"
	"self-heal-api/pkg/utils"
)

const (
	// AppIDHeader 客户端应用标识
	AppIDHeader = "X-App-ID"
	// AppTokenHeader 客户端应用令牌（HS256 JWT）
	AppTokenHeader = "X-App-Token"
)

// TokenVerifier 校验应用令牌
type TokenVerifier interface {
	VerifyToken(appID, token string) (*utils.AppClaims, error)
}

// AuthConfig 认证配置
type AuthConfig struct {
	Enabled  bool
	Verifier TokenVerifier
}

// Auth 校验 X-App-ID / X-App-Token，通过后把应用标识注入 Context
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		appID := strings.TrimSpace(c.GetHeader(AppIDHeader))

		if cfg.Enabled {
			token := strings.TrimSpace(c.GetHeader(AppTokenHeader))
			if appID == "" || token == "" {
				dto.AppError(c, apperrors.ErrTokenMissing.WithDetail("X-App-ID and X-App-Token are required"))
				return
			}
			if cfg.Verifier == nil {
				dto.AppError(c, apperrors.ErrServiceUnavailable.WithDetail("token verifier not configured"))
				return
			}
			if _, err := cfg.Verifier.VerifyToken(appID, token); err != nil {
				logger.Warn(c.Request.Context(), "app token rejected", "app_id", appID, "error", err.Error())
				if errors.Is(err, utils.ErrExpiredToken) {
					dto.AppError(c, apperrors.ErrTokenExpired)
					return
				}
				dto.AppError(c, apperrors.ErrTokenInvalid.WithError(err))
				return
			}
		}

		if appID != "" {
			c.Set("app_id", appID)
			ctx := logger.WithContext(c.Request.Context(), logger.AppIDKey, appID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
