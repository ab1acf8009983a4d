package healing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"

	"self-heal-api/internal/domain/entity"
	workflowprompt "self-heal-api/internal/workflow/prompt"
)

const (
	defaultRouterSampleSize = 10

	defaultSingleRerankWeight = 0.3
	defaultDualRerankWeight   = 0.85
)

// Router 每个请求调用一次 LLM，选择向量模型、召回策略与融合权重
type Router struct {
	llm        *jsonCaller
	sampleSize int
	cache      RouteCache
}

func NewRouter(factory ChatModelFactory, opts LLMOptions, sampleSize int) *Router {
	if sampleSize <= 0 {
		sampleSize = defaultRouterSampleSize
	}
	return &Router{
		llm: &jsonCaller{
			factory:  factory,
			workflow: "heal_route",
			promptID: workflowprompt.PromptRouteV1,
			opts:     opts,
		},
		sampleSize: sampleSize,
	}
}

// WithCache 相同查询与页面样本复用上次的路由决策
func (r *Router) WithCache(c RouteCache) *Router {
	r.cache = c
	return r
}

// Route LLM 传输错误向上返回；输出无法解析时使用保守默认值
func (r *Router) Route(ctx context.Context, query string, nodes []*entity.ElementNode) (entity.RouteDecision, error) {
	sample := buildSample(nodes, r.sampleSize)

	var key string
	if r.cache != nil {
		key = routeCacheKey(query, sample)
		if d, ok := r.cache.GetRoute(ctx, key); ok {
			return d, nil
		}
	}

	content, err := r.llm.call(ctx, map[string]any{
		"query":  query,
		"sample": sample,
	})
	if err != nil {
		return entity.RouteDecision{}, err
	}
	d := parseRouteDecision(content)

	// 兜底决策不缓存，下次仍交给 LLM
	if r.cache != nil && !d.Fallback {
		r.cache.SetRoute(ctx, key, d)
	}
	return d, nil
}

func routeCacheKey(query, sample string) string {
	sum := sha256.Sum256([]byte(query + "\n" + sample))
	return hex.EncodeToString(sum[:])
}

func buildSample(nodes []*entity.ElementNode, n int) string {
	if len(nodes) < n {
		n = len(nodes)
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("- ")
		sb.WriteString(nodes[i].Desc)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

type routeOutput struct {
	Lang           string   `json:"lang"`
	QueryKind      string   `json:"query_kind"`
	EmbeddingModel string   `json:"embedding_model"`
	SearchMode     string   `json:"search_mode"`
	RerankWeight   *float64 `json:"rerank_weight"`
	Reason         string   `json:"reason"`
}

// parseRouteDecision 解析并规范化路由输出
func parseRouteDecision(content string) entity.RouteDecision {
	raw, ok := extractJSONObject(content)
	if !ok {
		return entity.DefaultRoute("router output is not json, using conservative default")
	}
	var out routeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return entity.DefaultRoute("router output is not valid json, using conservative default")
	}

	d := entity.RouteDecision{
		Lang:      normalizeLang(out.Lang),
		QueryKind: strings.ToLower(strings.TrimSpace(out.QueryKind)),
		Reason:    strings.TrimSpace(out.Reason),
	}

	switch m := strings.ToLower(strings.TrimSpace(out.EmbeddingModel)); m {
	case entity.LangEN, entity.LangZH:
		d.EmbeddingModel = m
	default:
		d.EmbeddingModel = modelForLang(d.Lang)
	}

	switch m := entity.SearchMode(strings.ToLower(strings.TrimSpace(out.SearchMode))); m {
	case entity.SearchSingle, entity.SearchDual:
		d.SearchMode = m
	default:
		if d.QueryKind == "natural" {
			d.SearchMode = entity.SearchDual
		} else {
			d.SearchMode = entity.SearchSingle
		}
	}

	switch {
	case out.RerankWeight == nil || math.IsNaN(*out.RerankWeight):
		if d.SearchMode == entity.SearchDual {
			d.RerankWeight = defaultDualRerankWeight
		} else {
			d.RerankWeight = defaultSingleRerankWeight
		}
	default:
		d.RerankWeight = clamp01(*out.RerankWeight)
	}
	return d
}

func normalizeLang(s string) string {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case entity.LangEN, entity.LangZH, entity.LangMixed:
		return l
	default:
		return entity.LangEN
	}
}

func modelForLang(lang string) string {
	if lang == entity.LangZH {
		return entity.LangZH
	}
	return entity.LangEN
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
