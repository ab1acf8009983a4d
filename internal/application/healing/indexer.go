package healing

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"self-heal-api/internal/domain/entity"
	"self-heal-api/pkg/logger"
)

const defaultInsertConcurrency = 8

// Indexer 批量向量化节点描述并按指纹去重写入向量库
type Indexer struct {
	embedder    Embedder
	store       VectorStore
	concurrency int
}

func NewIndexer(embedder Embedder, store VectorStore, concurrency int) *Indexer {
	if concurrency <= 0 {
		concurrency = defaultInsertConcurrency
	}
	return &Indexer{
		embedder:    embedder,
		store:       store,
		concurrency: concurrency,
	}
}

// Embed 一次调用得到查询向量与全部节点向量
func (i *Indexer) Embed(ctx context.Context, model, query string, nodes []*entity.ElementNode) (*Embeddings, error) {
	descs := make([]string, len(nodes))
	for idx, n := range nodes {
		descs[idx] = n.Desc
	}

	emb, err := i.embedder.Embed(ctx, model, query, descs)
	if err != nil {
		return nil, err
	}
	if emb == nil || len(emb.PageVectors) != len(nodes) {
		got := 0
		if emb != nil {
			got = len(emb.PageVectors)
		}
		return nil, fmt.Errorf("%w: want %d, got %d", ErrVectorCountMismatch, len(nodes), got)
	}
	return emb, nil
}

// IndexReport 每个节点的写入结果，Outcomes 与节点同序
type IndexReport struct {
	Outcomes   []InsertOutcome
	Inserted   int
	Duplicates int
	Failed     int
}

// Index 并发写入全部节点并等待完成。
// 单个写入失败只记录，不会中断流水线，失败节点在本次请求中无法被召回。
func (i *Indexer) Index(ctx context.Context, nodes []*entity.ElementNode, vectors [][]float32) IndexReport {
	outcomes := make([]InsertOutcome, len(nodes))

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for idx := range nodes {
		g.Go(func() error {
			node := nodes[idx]
			outcome, err := i.store.Insert(ctx, vectors[idx], node.Desc)
			if err != nil {
				logger.Warn(ctx, "vector insert failed",
					"fingerprint", node.Fingerprint(),
					"error", err.Error(),
				)
				outcome = InsertFailed
			}
			outcomes[idx] = outcome
			return nil
		})
	}
	_ = g.Wait()

	report := IndexReport{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o {
		case InsertInserted:
			report.Inserted++
		case InsertDuplicate:
			report.Duplicates++
		default:
			report.Failed++
		}
	}
	return report
}
