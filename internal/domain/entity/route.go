package entity

// SearchMode 召回策略
type SearchMode string

const (
	SearchSingle SearchMode = "single"
	SearchDual   SearchMode = "dual"
)

// 语言 / 向量模型标识
const (
	LangEN    = "en"
	LangZH    = "zh"
	LangMixed = "mixed"
)

// RouteDecision 每个请求计算一次的路由结果
type RouteDecision struct {
	Lang           string     `json:"lang"`
	QueryKind      string     `json:"query_kind,omitempty"`
	EmbeddingModel string     `json:"embedding_model"`
	SearchMode     SearchMode `json:"search_mode"`
	RerankWeight   float64    `json:"rerank_weight"`
	Reason         string     `json:"reason"`
	Fallback       bool       `json:"fallback,omitempty"`
}

// VectorWeight 向量分权重，恒等于 1 - RerankWeight
func (d RouteDecision) VectorWeight() float64 {
	return 1 - d.RerankWeight
}

// AlternateModel 双路召回使用的另一种语言模型
func (d RouteDecision) AlternateModel() string {
	if d.EmbeddingModel == LangZH {
		return LangEN
	}
	return LangZH
}

// DefaultRoute LLM 输出不可解析时的保守路由
func DefaultRoute(reason string) RouteDecision {
	return RouteDecision{
		Lang:           LangEN,
		EmbeddingModel: LangEN,
		SearchMode:     SearchSingle,
		RerankWeight:   0.9,
		Reason:         reason,
		Fallback:       true,
	}
}
