// Package eino 为 Eino 组件调用注册全局回调，上报 LLM 指标与链路追踪
package eino

import (
	"context"
	"strings"
)

type ctxKey string

const (
	ctxKeyWorkflow ctxKey = "llm_workflow"
	ctxKeyProvider ctxKey = "llm_provider"
)

// WithWorkflowProvider 标记当前 LLM 调用所属的工作流与 provider，供回调打点使用
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	if w := strings.TrimSpace(workflow); w != "" {
		ctx = context.WithValue(ctx, ctxKeyWorkflow, w)
	}
	if p := strings.TrimSpace(provider); p != "" {
		ctx = context.WithValue(ctx, ctxKeyProvider, p)
	}
	return ctx
}

func WorkflowFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, ctxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, ctxKeyProvider)
}

func valueOrUnknown(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
