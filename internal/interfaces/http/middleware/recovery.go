// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"self-heal-api/internal/interfaces/http/dto"
	"self-heal-api/pkg/errors"
	"self-heal-api/pkg/logger"
)

// Recovery Panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 获取堆栈信息
				stack := string(debug.Stack())

				// 记录错误日志
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", err),
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				// 返回 500 错误
				if c.Writer.Written() {
					// 流式响应已开始，只能中止连接
					c.Abort()
					return
				}
				dto.AppError(c, errors.ErrInternalError)
			}
		}()

		c.Next()
	}
}
