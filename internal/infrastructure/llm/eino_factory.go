// Package llm 管理路由与仲裁使用的 Eino ChatModel 实例
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"self-heal-api/internal/config"
)

// ErrProviderNotFound 配置中没有该 provider
var ErrProviderNotFound = errors.New("llm provider not found")

// EinoFactory 按 provider 名称惰性创建并缓存 OpenAI 兼容的 ChatModel（Groq 等）
type EinoFactory struct {
	cfg    config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg config.LLMConfig) *EinoFactory {
	providers := make(map[string]config.ProviderConfig, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providers[strings.ToLower(name)] = p
	}
	cfg.Providers = providers
	cfg.DefaultProvider = strings.ToLower(cfg.DefaultProvider)

	return &EinoFactory{
		cfg:    cfg,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，name 为空时使用默认 provider
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = f.cfg.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	if providerCfg.APIKey == "" {
		return nil, fmt.Errorf("llm provider %q has no api key", name)
	}

	chatModel, err := openai.NewChatModel(ctx, chatModelConfig(providerCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Providers 返回已配置的 provider 名称（排序后）
func (f *EinoFactory) Providers() []string {
	names := make([]string, 0, len(f.cfg.Providers))
	for name := range f.cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func chatModelConfig(p config.ProviderConfig) *openai.ChatModelConfig {
	c := &openai.ChatModelConfig{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       p.Model,
		Temperature: ptrFloat32(float32(p.Temperature)),
		Timeout:     p.Timeout,
	}
	if p.MaxTokens > 0 {
		c.MaxTokens = &p.MaxTokens
	}
	return c
}

func ptrFloat32(f float32) *float32 {
	return &f
}
