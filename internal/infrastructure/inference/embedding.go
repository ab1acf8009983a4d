package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"self-heal-api/internal/application/healing"
)

const serviceEmbedding = "embedding"

type embedRequest struct {
	Query    string   `json:"query"`
	Elements []string `json:"elements"`
}

type embedResponse struct {
	QueryVec    []float32   `json:"query_vec"`
	PageVectors [][]float32 `json:"page_vectors"`
}

// EmbeddingClient 按模型标识（en / zh）选择端点的向量化客户端
type EmbeddingClient struct {
	endpoints map[string]string
	transport transport
}

var _ healing.Embedder = (*EmbeddingClient)(nil)

// NewEmbeddingClient 创建向量化客户端，endpoints 的键为模型标识
func NewEmbeddingClient(endpoints map[string]string, auth Auth, timeout time.Duration) *EmbeddingClient {
	normalized := make(map[string]string, len(endpoints))
	for k, v := range endpoints {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &EmbeddingClient{
		endpoints: normalized,
		transport: newTransport(serviceEmbedding, auth, timeout),
	}
}

// Embed 一次调用同时得到查询向量与页面元素向量
func (c *EmbeddingClient) Embed(ctx context.Context, model, query string, elements []string) (*healing.Embeddings, error) {
	endpoint, ok := c.endpoints[strings.ToLower(model)]
	if !ok {
		return nil, fmt.Errorf("no embedding endpoint for model %q", model)
	}
	if elements == nil {
		elements = []string{}
	}

	var resp embedResponse
	if err := c.transport.postJSON(ctx, endpoint, &embedRequest{Query: query, Elements: elements}, &resp); err != nil {
		return nil, err
	}
	if len(resp.QueryVec) == 0 {
		return nil, fmt.Errorf("embedding response missing query_vec")
	}
	return &healing.Embeddings{
		QueryVec:    resp.QueryVec,
		PageVectors: resp.PageVectors,
	}, nil
}
