package healing

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"self-heal-api/internal/domain/entity"
)

// Embedder 向量化服务的最小依赖（port），由 inference 客户端实现。
// model 为路由选出的模型标识（en / zh）。
type Embedder interface {
	Embed(ctx context.Context, model, query string, elements []string) (*Embeddings, error)
}

// Embeddings 一次批量向量化的结果，PageVectors 与输入 elements 等长同序
type Embeddings struct {
	QueryVec    []float32
	PageVectors [][]float32
}

// Reranker 交叉编码重排服务，返回与 candidates 同序的得分
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// VectorStore 向量存储（Milvus / chromem 实现）。
// Insert 以描述串指纹去重，重复写入返回 InsertDuplicate 而不是错误。
type VectorStore interface {
	Insert(ctx context.Context, vector []float32, text string) (InsertOutcome, error)
	Search(ctx context.Context, vector []float32, k int) ([]SearchHit, error)
}

// SearchHit 一条召回结果
type SearchHit struct {
	Score float64
	Text  string
}

// InsertOutcome 单个节点写入结果
type InsertOutcome string

const (
	InsertInserted  InsertOutcome = "inserted"
	InsertDuplicate InsertOutcome = "duplicate"
	InsertFailed    InsertOutcome = "failed"
)

// ChatModelFactory 按 provider 名称获取 ChatModel
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// RouteCache 路由决策缓存（可选）。读写失败由实现自行记录，不影响流水线
type RouteCache interface {
	GetRoute(ctx context.Context, key string) (entity.RouteDecision, bool)
	SetRoute(ctx context.Context, key string, d entity.RouteDecision)
}
