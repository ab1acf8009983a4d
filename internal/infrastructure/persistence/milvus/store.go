package milvus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"self-heal-api/internal/application/healing"
	domain "self-heal-api/internal/domain/entity"
	"self-heal-api/pkg/logger"
	"self-heal-api/pkg/metrics"
)

const backend = "milvus"

// ErrDimensionMismatch 写入或查询向量维度与集合不一致
var ErrDimensionMismatch = errors.New("vector dimension does not match collection")

// api Store 用到的 Milvus 客户端方法子集，client.Client 满足该接口
type api interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, name string, async bool, opts ...client.LoadCollectionOption) error
	Query(ctx context.Context, collectionName string, partitionNames []string, expr string, outputFields []string, opts ...client.SearchQueryOptionFunc) (client.ResultSet, error)
	Insert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

// StoreOptions 集合参数
type StoreOptions struct {
	Collection string
	Dimension  int
	HNSWM      int
	HNSWEf     int
}

// Store 以描述串指纹去重的元素向量库，实现 healing.VectorStore
type Store struct {
	api  api
	opts StoreOptions

	// 同一页面内相同描述串的并发写入合并为一次
	inflight singleflight.Group
}

var _ healing.VectorStore = (*Store)(nil)

// NewStore 创建向量存储
func NewStore(c *Client, opts StoreOptions) *Store {
	return newStore(c.milvus, opts)
}

func newStore(a api, opts StoreOptions) *Store {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.HNSWM <= 0 {
		opts.HNSWM = 16
	}
	if opts.HNSWEf <= 0 {
		opts.HNSWEf = 200
	}
	return &Store{api: a, opts: opts}
}

// EnsureCollection 确保集合与索引可用（不存在则创建），不做破坏性操作
func (s *Store) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection",
		trace.WithAttributes(attribute.String("collection", s.opts.Collection)))
	defer span.End()

	exists, err := s.api.HasCollection(ctx, s.opts.Collection)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if s.opts.Dimension <= 0 {
			return fmt.Errorf("collection %s missing and vector dimension not configured", s.opts.Collection)
		}
		if err := s.api.CreateCollection(ctx, ElementsSchema(s.opts.Collection, s.opts.Dimension), entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, s.opts.HNSWM, s.opts.HNSWEf)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		// 索引失败不阻断启动，留给运维介入
		if err := s.api.CreateIndex(ctx, s.opts.Collection, FieldVector, idx, false); err != nil {
			logger.Warn(ctx, "milvus create index failed", "collection", s.opts.Collection, "error", err.Error())
		}
		logger.Info(ctx, "milvus collection created", "collection", s.opts.Collection, "dim", s.opts.Dimension)
	}

	return s.api.LoadCollection(ctx, s.opts.Collection, false)
}

// Insert 写入一个元素向量；指纹已存在时跳过并返回 InsertDuplicate
func (s *Store) Insert(ctx context.Context, vector []float32, text string) (healing.InsertOutcome, error) {
	fp := domain.Fingerprint(text)

	v, err, shared := s.inflight.Do(fp, func() (any, error) {
		return s.insertOnce(ctx, fp, vector, text)
	})
	outcome, _ := v.(healing.InsertOutcome)
	if err != nil {
		outcome = healing.InsertFailed
	} else if shared && outcome == healing.InsertInserted {
		// 合并调用中只有一方真正写入
		outcome = healing.InsertDuplicate
	}
	metrics.VectorInsertTotal.WithLabelValues(backend, string(outcome)).Inc()
	return outcome, err
}

func (s *Store) insertOnce(ctx context.Context, fp string, vector []float32, text string) (healing.InsertOutcome, error) {
	ctx, span := tracer.Start(ctx, "milvus.Insert",
		trace.WithAttributes(
			attribute.String("collection", s.opts.Collection),
			attribute.String("fingerprint", fp),
		))
	defer span.End()

	if s.opts.Dimension > 0 && len(vector) != s.opts.Dimension {
		return healing.InsertFailed, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.opts.Dimension)
	}

	exists, err := s.exists(ctx, fp)
	if err != nil {
		span.RecordError(err)
		return healing.InsertFailed, err
	}
	if exists {
		logger.Debug(ctx, "milvus insert skipped, fingerprint exists", "fingerprint", fp)
		return healing.InsertDuplicate, nil
	}

	dim := len(vector)
	if _, err := s.api.Insert(ctx, s.opts.Collection, "",
		entity.NewColumnFloatVector(FieldVector, dim, [][]float32{vector}),
		entity.NewColumnVarChar(FieldText, []string{text}),
		entity.NewColumnVarChar(FieldFingerprint, []string{fp}),
	); err != nil {
		span.RecordError(err)
		return healing.InsertFailed, fmt.Errorf("failed to insert element: %w", err)
	}
	if err := s.api.Flush(ctx, s.opts.Collection, false); err != nil {
		span.RecordError(err)
		return healing.InsertFailed, fmt.Errorf("failed to flush collection: %w", err)
	}
	return healing.InsertInserted, nil
}

func (s *Store) exists(ctx context.Context, fp string) (bool, error) {
	rs, err := s.api.Query(ctx, s.opts.Collection, nil,
		fmt.Sprintf(`%s == "%s"`, FieldFingerprint, escapeExpr(fp)),
		[]string{FieldFingerprint},
		client.WithLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to query fingerprint: %w", err)
	}
	col := rs.GetColumn(FieldFingerprint)
	return col != nil && col.Len() > 0, nil
}

// Search 余弦相似度检索，得分原样返回（越大越相似）
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]healing.SearchHit, error) {
	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", s.opts.Collection),
			attribute.Int("top_k", k),
		))
	defer span.End()

	if k <= 0 {
		return []healing.SearchHit{}, nil
	}
	if s.opts.Dimension > 0 && len(vector) != s.opts.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.opts.Dimension)
	}

	start := time.Now()
	defer func() {
		metrics.VectorSearchDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	}()

	sp, err := entity.NewIndexHNSWSearchParam(max(64, k))
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := s.api.Search(ctx,
		s.opts.Collection,
		nil,
		"",
		[]string{FieldText},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldVector,
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]healing.SearchHit, 0, k)
	for _, result := range results {
		if result.Err != nil {
			span.RecordError(result.Err)
			return nil, fmt.Errorf("failed to search: %w", result.Err)
		}
		textCol, ok := result.Fields.GetColumn(FieldText).(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		texts := textCol.Data()
		for i := 0; i < result.ResultCount && i < len(texts) && i < len(result.Scores); i++ {
			hits = append(hits, healing.SearchHit{
				Score: float64(result.Scores[i]),
				Text:  texts[i],
			})
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// escapeExpr 转义过滤表达式中的字符串字面量
func escapeExpr(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
