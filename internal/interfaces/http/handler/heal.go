// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"self-heal-api/internal/application/healing"
	"self-heal-api/internal/domain/entity"
	"self-heal-api/internal/interfaces/http/dto"
	apperrors "self-heal-api/pkg/errors"
	"self-heal-api/pkg/logger"
)

// AppIDHeader 客户端应用标识请求头
const AppIDHeader = "X-App-ID"

// Healer 自愈流水线，由 healing.Engine 实现
type Healer interface {
	Heal(ctx context.Context, req *entity.HealRequest) (*entity.HealResponse, error)
	HealStream(ctx context.Context, req *entity.HealRequest) <-chan healing.Event
}

// HealHandler 自愈处理器
type HealHandler struct {
	healer Healer
}

// NewHealHandler 创建自愈处理器
func NewHealHandler(healer Healer) *HealHandler {
	return &HealHandler{healer: healer}
}

// Heal 同步自愈
// @Summary 定位器自愈
// @Description 解析页面结构，召回、重排并由 LLM 选出与失效定位器对应的新定位器
// @Tags Healing
// @Accept json
// @Produce json
// @Param body body dto.HealRequest true "自愈请求"
// @Success 200 {object} entity.HealResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /self-heal [post]
func (h *HealHandler) Heal(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	resp, err := h.healer.Heal(c.Request.Context(), req)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HealStream 流式自愈，按阶段输出纯文本进度，最后输出 JSON 结果与总耗时
// @Summary 定位器自愈（流式）
// @Tags Healing
// @Accept json
// @Produce plain
// @Param body body dto.HealRequest true "自愈请求"
// @Success 200 "chunked text stream"
// @Failure 400 {object} dto.ErrorResponse
// @Router /self-heal-stream [post]
func (h *HealHandler) HealStream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	events := h.healer.HealStream(ctx, req)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	r := &streamRenderer{}
	for ev := range events {
		if err := r.render(c.Writer, ev); err != nil {
			// 客户端断开后 ctx 被取消，流水线在下一阶段边界停止
			logger.Warn(ctx, "heal stream write failed", "error", err.Error())
			continue
		}
		c.Writer.Flush()
	}
}

// bind 解析并校验请求体；输入错误在触达任何下游服务前返回 400
func (h *HealHandler) bind(c *gin.Context) (*entity.HealRequest, bool) {
	var body dto.HealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithError(err).WithDetail("invalid json body"))
		return nil, false
	}

	req := body.ToEntity(c.GetHeader(AppIDHeader))
	if err := req.Validate(); err != nil {
		appErr := apperrors.ErrInvalidParam
		if errors.Is(err, entity.ErrUnsupportedPlatform) {
			appErr = apperrors.ErrUnsupportedPlatform
		}
		dto.AppError(c, appErr.WithError(err).WithDetail(err.Error()))
		return nil, false
	}
	return req, true
}
