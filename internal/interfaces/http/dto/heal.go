package dto

import (
	"self-heal-api/internal/domain/entity"
)

// LocatorDTO 定位器
type LocatorDTO struct {
	By    string `json:"by"`
	Value string `json:"value"`
}

// HealRequest 自愈请求体；字段语义校验在 entity.HealRequest.Validate 中完成
type HealRequest struct {
	AppID      string         `json:"app_id"`
	PageID     string         `json:"page_id"`
	Platform   string         `json:"platform"`
	OldLocator LocatorDTO     `json:"old_locator"`
	PageDump   string         `json:"page_dump"`
	Screenshot string         `json:"screenshot,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// ToEntity 转为领域请求；请求体未携带 app_id 时使用请求头中的应用标识
func (r *HealRequest) ToEntity(headerAppID string) *entity.HealRequest {
	appID := r.AppID
	if appID == "" {
		appID = headerAppID
	}
	return &entity.HealRequest{
		AppID:      appID,
		PageID:     r.PageID,
		Platform:   r.Platform,
		OldLocator: entity.Locator{By: r.OldLocator.By, Value: r.OldLocator.Value},
		PageDump:   r.PageDump,
		Screenshot: r.Screenshot,
		Context:    r.Context,
	}
}
