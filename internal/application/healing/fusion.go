package healing

import (
	"context"
	"fmt"
	"sort"

	"self-heal-api/internal/domain/entity"
)

const defaultTopK = 3

// Fuser 调用交叉编码重排并与向量分加权融合
type Fuser struct {
	reranker Reranker
	topK     int
}

func NewFuser(reranker Reranker, topK int) *Fuser {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Fuser{reranker: reranker, topK: topK}
}

// Rerank 无候选时不调用重排服务
func (f *Fuser) Rerank(ctx context.Context, query string, rerankWeight float64, candidates []*entity.Candidate) ([]*entity.Candidate, error) {
	if len(candidates) == 0 {
		return []*entity.Candidate{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	scores, err := f.reranker.Rerank(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrScoreCountMismatch, len(candidates), len(scores))
	}
	return Fuse(candidates, scores, rerankWeight, f.topK), nil
}

// Fuse final = (1-w)*vector + w*rerank，按 final 稳定降序并截断到 topK
func Fuse(candidates []*entity.Candidate, scores []float64, rerankWeight float64, topK int) []*entity.Candidate {
	w := clamp01(rerankWeight)
	out := make([]*entity.Candidate, len(candidates))
	for i, c := range candidates {
		c.Fuse(scores[i], w)
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].FinalScore > *out[j].FinalScore
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
