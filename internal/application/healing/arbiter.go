package healing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"self-heal-api/internal/domain/entity"
	workflowprompt "self-heal-api/internal/workflow/prompt"
)

const (
	reasonNoCandidates = "no candidates"
	reasonParseFailed  = "parse failed, defaulted to first candidate"
)

// Decision LLM 仲裁结果，Index 为 -1 表示不选
type Decision struct {
	Index    int    `json:"index"`
	Reason   string `json:"reason"`
	Fallback bool   `json:"-"`
}

// Arbiter 由 LLM 在 top-K 候选中选出最佳一项
type Arbiter struct {
	llm *jsonCaller
}

func NewArbiter(factory ChatModelFactory, opts LLMOptions) *Arbiter {
	return &Arbiter{
		llm: &jsonCaller{
			factory:  factory,
			workflow: "heal_arbiter",
			promptID: workflowprompt.PromptArbiterV1,
			opts:     opts,
		},
	}
}

// Choose 无候选时直接返回 -1，不发起 LLM 调用；输出无法解析时默认选第一个
func (a *Arbiter) Choose(ctx context.Context, old entity.Locator, candidates []*entity.Candidate) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{Index: -1, Reason: reasonNoCandidates}, nil
	}

	content, err := a.llm.call(ctx, map[string]any{
		"old_by":     old.By,
		"old_value":  old.Value,
		"candidates": formatCandidates(candidates),
	})
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(content), nil
}

func formatCandidates(candidates []*entity.Candidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "[%d]\nscore=%.4f\ntext=%s\n", i, c.Score(), c.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

type decisionOutput struct {
	Index  *float64 `json:"index"`
	Reason *string  `json:"reason"`
}

func parseDecision(content string) Decision {
	fallback := Decision{Index: 0, Reason: reasonParseFailed, Fallback: true}

	raw, ok := extractJSONObject(content)
	if !ok {
		return fallback
	}
	var out decisionOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fallback
	}
	if out.Index == nil || out.Reason == nil || *out.Index != math.Trunc(*out.Index) {
		return fallback
	}
	return Decision{Index: int(*out.Index), Reason: strings.TrimSpace(*out.Reason)}
}

// Resolve 把仲裁结果转换为响应：越界或 -1 视为未自愈，置信度为 0
func Resolve(d Decision, candidates []*entity.Candidate) *entity.HealResponse {
	if candidates == nil {
		candidates = []*entity.Candidate{}
	}
	if d.Index < 0 || d.Index >= len(candidates) {
		return entity.NotHealed(d.Reason, candidates)
	}

	chosen := candidates[d.Index]
	return &entity.HealResponse{
		Healed:     true,
		Confidence: clamp01(chosen.Score()),
		NewLocator: entity.LocatorFor(chosen.Element),
		Details: entity.HealDetails{
			Reason:     d.Reason,
			Candidates: candidates,
		},
	}
}
