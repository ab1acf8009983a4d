package healing

import (
	"context"

	"self-heal-api/internal/domain/entity"
	"self-heal-api/pkg/logger"
)

const defaultRecallK = 5

// Recaller 基于向量库做 k 近邻召回
type Recaller struct {
	embedder Embedder
	store    VectorStore
	k        int
}

func NewRecaller(embedder Embedder, store VectorStore, k int) *Recaller {
	if k <= 0 {
		k = defaultRecallK
	}
	return &Recaller{embedder: embedder, store: store, k: k}
}

// Recall single 模式只用查询向量检索；dual 模式额外用另一语言模型对种子节点向量化后检索，
// 两路结果按文本去重合并（保持首次出现顺序）并截断到 k。
func (r *Recaller) Recall(ctx context.Context, route entity.RouteDecision, queryVec []float32, nodes []*entity.ElementNode) ([]*entity.Candidate, error) {
	hits, err := r.store.Search(ctx, queryVec, r.k)
	if err != nil {
		return nil, err
	}

	if route.SearchMode == entity.SearchDual {
		seed := SelectSeed(nodes)
		if seed != nil {
			alt, err := r.embedder.Embed(ctx, route.AlternateModel(), seed.Desc, nil)
			if err != nil {
				return nil, &alternateEmbeddingError{err: err}
			}
			altHits, err := r.store.Search(ctx, alt.QueryVec, r.k)
			if err != nil {
				return nil, err
			}
			hits = MergeHits(r.k, hits, altHits)
		}
	}

	candidates := MapHits(hits, nodes)
	if dropped := len(hits) - len(candidates); dropped > 0 {
		logger.Debug(ctx, "recall hits without source node dropped", "dropped", dropped)
	}
	return candidates, nil
}

// SelectSeed 选择双路召回的种子节点：第一个带可读文本或无障碍描述的节点，否则第一个节点
func SelectSeed(nodes []*entity.ElementNode) *entity.ElementNode {
	for _, n := range nodes {
		if n.HasLabel() {
			return n
		}
	}
	if len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// MergeHits 按文本去重合并多路召回结果，保持首次出现顺序，最多 k 条
func MergeHits(k int, lists ...[]SearchHit) []SearchHit {
	seen := make(map[string]struct{}, k)
	out := make([]SearchHit, 0, k)
	for _, list := range lists {
		for _, h := range list {
			if len(out) >= k {
				return out
			}
			if _, ok := seen[h.Text]; ok {
				continue
			}
			seen[h.Text] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// MapHits 以描述串精确匹配把召回结果映射回节点（首个匹配生效），找不到源节点的结果丢弃
func MapHits(hits []SearchHit, nodes []*entity.ElementNode) []*entity.Candidate {
	byDesc := make(map[string]*entity.ElementNode, len(nodes))
	for _, n := range nodes {
		if _, ok := byDesc[n.Desc]; !ok {
			byDesc[n.Desc] = n
		}
	}

	out := make([]*entity.Candidate, 0, len(hits))
	for _, h := range hits {
		node, ok := byDesc[h.Text]
		if !ok {
			continue
		}
		out = append(out, entity.NewCandidate(node, h.Score))
	}
	return out
}

// alternateEmbeddingError 双路召回中种子节点向量化失败
type alternateEmbeddingError struct {
	err error
}

func (e *alternateEmbeddingError) Error() string { return "alternate embedding: " + e.err.Error() }

func (e *alternateEmbeddingError) Unwrap() error { return e.err }
