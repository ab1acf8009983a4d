package healing

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"

	einoobs "self-heal-api/internal/observability/eino"
	workflowprompt "self-heal-api/internal/workflow/prompt"
	"self-heal-api/pkg/logger"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

// LLMOptions 单个 LLM 调用点的参数
type LLMOptions struct {
	Provider    string
	Model       string
	Temperature *float32
}

// jsonCaller 渲染模板并调用 ChatModel，优先请求 JSON 输出格式
type jsonCaller struct {
	factory  ChatModelFactory
	workflow string
	promptID workflowprompt.PromptID
	opts     LLMOptions
}

func (c *jsonCaller) call(ctx context.Context, vars map[string]any) (string, error) {
	if c == nil || c.factory == nil {
		return "", ErrLLMNotConfigured
	}

	ctx = einoobs.WithWorkflowProvider(ctx, c.workflow, c.opts.Provider)
	chatModel, err := c.factory.Get(ctx, c.opts.Provider)
	if err != nil {
		return "", err
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(c.promptID)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", err
	}

	out, err := chatModel.Generate(ctx, msgs, c.modelOptions(true)...)
	if err != nil && isResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_object not supported, fallback to prompt-only",
			"workflow", c.workflow,
			"provider", c.opts.Provider,
			"error", err.Error(),
		)
		out, err = chatModel.Generate(ctx, msgs, c.modelOptions(false)...)
	}
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", ErrEmptyLLMResponse
	}
	return strings.TrimSpace(out.Content), nil
}

func (c *jsonCaller) modelOptions(jsonFormat bool) []model.Option {
	opts := make([]model.Option, 0, 3)
	if c.opts.Temperature != nil {
		opts = append(opts, model.WithTemperature(*c.opts.Temperature))
	}
	if m := strings.TrimSpace(c.opts.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	if jsonFormat {
		opts = append(opts, jsonObjectOption())
	}
	return opts
}
