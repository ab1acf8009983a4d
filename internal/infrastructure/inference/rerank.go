package inference

import (
	"context"
	"time"

	"self-heal-api/internal/application/healing"
)

const serviceRerank = "rerank"

type rerankRequest struct {
	Query     string   `json:"query"`
	Candidate []string `json:"candidate"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// RerankClient 交叉编码重排客户端
type RerankClient struct {
	endpoint  string
	transport transport
}

var _ healing.Reranker = (*RerankClient)(nil)

// NewRerankClient 创建重排客户端
func NewRerankClient(endpoint string, auth Auth, timeout time.Duration) *RerankClient {
	return &RerankClient{
		endpoint:  endpoint,
		transport: newTransport(serviceRerank, auth, timeout),
	}
}

// Rerank 返回与 candidates 同序的得分；数量校验由调用方负责
func (c *RerankClient) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	var resp rerankResponse
	if err := c.transport.postJSON(ctx, c.endpoint, &rerankRequest{Query: query, Candidate: candidates}, &resp); err != nil {
		return nil, err
	}
	return resp.Scores, nil
}
