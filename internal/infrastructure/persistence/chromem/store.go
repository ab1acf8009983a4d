// Package chromem 提供基于 chromem-go 的嵌入式元素向量存储，
// 适用于本地开发与无外部向量库的部署
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"self-heal-api/internal/application/healing"
	"self-heal-api/internal/config"
	"self-heal-api/internal/domain/entity"
	"self-heal-api/pkg/logger"
	"self-heal-api/pkg/metrics"
)

const (
	backend           = "chromem"
	defaultCollection = "healer_elements"
)

var tracer = otel.Tracer("chromem")

// errNoEmbedder 文档总是携带预计算向量，集合不需要自带向量化函数
var errNoEmbedder = errors.New("chromem store requires precomputed embeddings")

// Store 以描述串指纹作为文档 ID 的向量存储，实现 healing.VectorStore
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection

	// 指纹检查与写入需要原子完成
	mu sync.Mutex
}

var _ healing.VectorStore = (*Store)(nil)

// NewStore 创建存储；Path 为空时只驻留内存
func NewStore(cfg config.ChromemConfig) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path := strings.TrimSpace(cfg.Path); path != "" {
		path, err = expandPath(path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := cfg.Collection
	if name == "" {
		name = defaultCollection
	}
	coll, err := db.GetOrCreateCollection(name, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}

	logger.Info(context.Background(), "chromem store initialized",
		"path", cfg.Path,
		"collection", name,
		"documents", coll.Count(),
	)
	return &Store{db: db, collection: coll}, nil
}

func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Insert 指纹已存在时跳过并返回 InsertDuplicate
func (s *Store) Insert(ctx context.Context, vector []float32, text string) (outcome healing.InsertOutcome, err error) {
	fp := entity.Fingerprint(text)
	ctx, span := tracer.Start(ctx, "chromem.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("fingerprint", fp))

	defer func() {
		if err != nil {
			outcome = healing.InsertFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.VectorInsertTotal.WithLabelValues(backend, string(outcome)).Inc()
	}()

	if len(vector) == 0 {
		return healing.InsertFailed, errors.New("empty vector")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.collection.GetByID(ctx, fp); err == nil {
		logger.Debug(ctx, "chromem insert skipped, fingerprint exists", "fingerprint", fp)
		return healing.InsertDuplicate, nil
	}

	doc := chromem.Document{
		ID:        fp,
		Content:   text,
		Embedding: vector,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return healing.InsertFailed, fmt.Errorf("adding document: %w", err)
	}
	return healing.InsertInserted, nil
}

// Search 返回余弦相似度最高的 k 条；集合不足 k 条时返回全部
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]healing.SearchHit, error) {
	ctx, span := tracer.Start(ctx, "chromem.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("top_k", k))

	start := time.Now()
	defer func() {
		metrics.VectorSearchDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	}()

	// chromem 要求 nResults 不超过文档数
	n := min(k, s.collection.Count())
	if n <= 0 {
		return []healing.SearchHit{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]healing.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, healing.SearchHit{
			Score: float64(r.Similarity),
			Text:  r.Content,
		})
	}
	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// Count 当前文档数
func (s *Store) Count() int {
	return s.collection.Count()
}

// HealthCheck 嵌入式存储始终可用
func (s *Store) HealthCheck(context.Context) error {
	if s.collection == nil {
		return errors.New("chromem collection not initialized")
	}
	return nil
}
