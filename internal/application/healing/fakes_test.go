package healing

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"self-heal-api/internal/domain/entity"
)

// fakeEmbedder 对文本生成确定性向量
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  []string // 每次调用的 model
	vecFor func(model, text string) []float32
	err    error
	// short 为 true 时少返回一个页面向量
	short bool
}

func (f *fakeEmbedder) Embed(_ context.Context, model, query string, elements []string) (*Embeddings, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	out := &Embeddings{QueryVec: f.vec(model, query)}
	for _, e := range elements {
		out.PageVectors = append(out.PageVectors, f.vec(model, e))
	}
	if f.short && len(out.PageVectors) > 0 {
		out.PageVectors = out.PageVectors[:len(out.PageVectors)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) vec(model, text string) []float32 {
	if f.vecFor != nil {
		return f.vecFor(model, text)
	}
	return []float32{1, 0}
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeReranker struct {
	calls  int
	scores func(query string, candidates []string) []float64
	err    error
}

func (f *fakeReranker) Rerank(_ context.Context, query string, candidates []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores(query, candidates), nil
	}
	out := make([]float64, len(candidates))
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

type storedVector struct {
	vector []float32
	text   string
}

// memoryStore 指纹去重的内存向量库，按余弦相似度检索
type memoryStore struct {
	mu       sync.Mutex
	items    map[string]storedVector
	order    []string
	failText string
	searches int
	// hits 非空时 Search 依次返回预设结果
	hits [][]SearchHit
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: make(map[string]storedVector)}
}

func (s *memoryStore) Insert(_ context.Context, vector []float32, text string) (InsertOutcome, error) {
	if s.failText != "" && strings.Contains(text, s.failText) {
		return InsertFailed, errors.New("store unavailable")
	}
	fp := entity.Fingerprint(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[fp]; ok {
		return InsertDuplicate, nil
	}
	s.items[fp] = storedVector{vector: vector, text: text}
	s.order = append(s.order, fp)
	return InsertInserted, nil
}

func (s *memoryStore) Search(_ context.Context, vector []float32, k int) ([]SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	if len(s.hits) > 0 {
		h := s.hits[0]
		s.hits = s.hits[1:]
		return h, nil
	}

	out := make([]SearchHit, 0, len(s.order))
	for _, fp := range s.order {
		it := s.items[fp]
		out = append(out, SearchHit{Score: cosine(vector, it.vector), Text: it.text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *memoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fakeChatModel 按系统提示区分路由与仲裁调用
type fakeChatModel struct {
	mu          sync.Mutex
	routeCalls  int
	arbiterCall int
	prompts     []string

	route   func() (string, error)
	arbiter func() (string, error)
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var system, user string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = msg.Content
		case schema.User:
			user = msg.Content
		}
	}
	m.prompts = append(m.prompts, user)

	var (
		content string
		err     error
	)
	if strings.Contains(system, "routing stage") {
		m.routeCalls++
		content, err = callOr(m.route, `{"lang":"en","query_kind":"token","embedding_model":"en","search_mode":"single","rerank_weight":0.3,"reason":"id-like token"}`)
	} else {
		m.arbiterCall++
		content, err = callOr(m.arbiter, `{"index":0,"reason":"same business element"}`)
	}
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeChatModel) calls() (route, arbiter int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routeCalls, m.arbiterCall
}

func callOr(fn func() (string, error), def string) (string, error) {
	if fn == nil {
		return def, nil
	}
	return fn()
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func node(text, resourceID string) *entity.ElementNode {
	return entity.NewElementNode(entity.ElementAttrs{Text: text, ResourceID: resourceID})
}

func candidate(text string, vectorScore float64) *entity.Candidate {
	return entity.NewCandidate(node(text, ""), vectorScore)
}

type memRouteCache struct {
	mu      sync.Mutex
	entries map[string]entity.RouteDecision
}

func (c *memRouteCache) GetRoute(_ context.Context, key string) (entity.RouteDecision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[key]
	return d, ok
}

func (c *memRouteCache) SetRoute(_ context.Context, key string, d entity.RouteDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]entity.RouteDecision{}
	}
	c.entries[key] = d
}
