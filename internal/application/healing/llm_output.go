package healing

import (
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/components/model"
	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
)

// extractJSONObject 截取模型输出中第一个 '{' 到最后一个 '}' 之间的内容。
// 模型可能在 JSON 前后夹杂说明文字或 markdown 代码块。
func extractJSONObject(s string) (string, bool) {
	raw := strings.TrimSpace(s)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	raw = raw[start : end+1]
	if !json.Valid([]byte(raw)) {
		return "", false
	}
	return raw, true
}

// jsonObjectOption 请求 response_format=json_object；provider 不支持时由调用方降级为纯 Prompt 约束
func jsonObjectOption() model.Option {
	return openaiopts.WithExtraFields(map[string]any{
		"response_format": map[string]any{"type": "json_object"},
	})
}

func isResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"):
		return true
	case strings.Contains(msg, "json_object"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "response"):
		return true
	default:
		return false
	}
}
