package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Platform 页面来源平台
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// ErrUnsupportedPlatform 平台不受支持
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// UnsupportedPlatformError 携带原始平台值的类型化错误
type UnsupportedPlatformError struct {
	Value string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q", e.Value)
}

// Is 使 errors.Is(err, ErrUnsupportedPlatform) 成立
func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// ParsePlatform 解析平台字符串（大小写、首尾空白不敏感）
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformAndroid, PlatformWeb:
		return p, nil
	default:
		return "", &UnsupportedPlatformError{Value: s}
	}
}

// ValidationError 请求字段缺失或非法
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// HealRequest 自愈请求
type HealRequest struct {
	AppID      string         `json:"app_id"`
	PageID     string         `json:"page_id"`
	Platform   string         `json:"platform"`
	OldLocator Locator        `json:"old_locator"`
	PageDump   string         `json:"page_dump"`
	Screenshot string         `json:"screenshot,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Validate 在任何下游调用前校验请求
func (r *HealRequest) Validate() error {
	if strings.TrimSpace(r.AppID) == "" {
		return &ValidationError{Field: "app_id", Reason: "required"}
	}
	if strings.TrimSpace(r.PageID) == "" {
		return &ValidationError{Field: "page_id", Reason: "required"}
	}
	if _, err := ParsePlatform(r.Platform); err != nil {
		return err
	}
	if strings.TrimSpace(r.OldLocator.By) == "" || strings.TrimSpace(r.OldLocator.Value) == "" {
		return &ValidationError{Field: "old_locator", Reason: "by and value are required"}
	}
	if strings.TrimSpace(r.PageDump) == "" {
		return &ValidationError{Field: "page_dump", Reason: "required"}
	}
	return nil
}

// Query 用于向量检索与重排的查询文本
func (r *HealRequest) Query() string {
	return "by=" + r.OldLocator.By + ", value=" + r.OldLocator.Value
}

// HealDetails 调试信息
type HealDetails struct {
	Reason     string         `json:"reason"`
	Candidates []*Candidate   `json:"candidates"`
	Route      *RouteDecision `json:"route,omitempty"`
}

// HealResponse 自愈结果；NewLocator 仅在 Healed 为 true 时存在
type HealResponse struct {
	Healed     bool        `json:"healed"`
	Confidence float64     `json:"confidence"`
	NewLocator *Locator    `json:"new_locator"`
	Details    HealDetails `json:"details"`
}

// NotHealed 构造未自愈结果
func NotHealed(reason string, candidates []*Candidate) *HealResponse {
	if candidates == nil {
		candidates = []*Candidate{}
	}
	return &HealResponse{
		Healed:     false,
		Confidence: 0,
		Details: HealDetails{
			Reason:     reason,
			Candidates: candidates,
		},
	}
}
