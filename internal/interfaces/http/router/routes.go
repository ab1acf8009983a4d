package router

import (
	"github.com/gin-gonic/gin"

	"self-heal-api/internal/interfaces/http/handler"
)

// RegisterHealRoutes 注册自愈路由；/healing 与 /self-heal 为同一接口
func RegisterHealRoutes(g *gin.RouterGroup, h *handler.HealHandler) {
	g.POST("/healing", h.Heal)
	g.POST("/self-heal", h.Heal)
	g.POST("/self-heal-stream", h.HealStream)
}
