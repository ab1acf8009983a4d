package healing

import "errors"

var (
	// ErrVectorCountMismatch 向量化服务返回的向量数与节点数不一致
	ErrVectorCountMismatch = errors.New("embedding vector count does not match node count")
	// ErrScoreCountMismatch 重排服务返回的得分数与候选数不一致
	ErrScoreCountMismatch = errors.New("rerank score count does not match candidate count")
	// ErrLLMNotConfigured 未配置 LLM
	ErrLLMNotConfigured = errors.New("llm factory not configured")
	// ErrEmptyLLMResponse LLM 返回空消息
	ErrEmptyLLMResponse = errors.New("empty llm response")
)
