package milvus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-heal-api/internal/application/healing"
	domain "self-heal-api/internal/domain/entity"
)

// fakeAPI 内存版 Milvus，只覆盖 Store 用到的方法
type fakeAPI struct {
	mu           sync.Mutex
	hasColl      bool
	created      *entity.Schema
	indexed      bool
	loaded       bool
	fingerprints map[string]bool
	inserts      int
	flushes      int
	lastExpr     string
	queryErr     error
	insertErr    error
	searchRes    []client.SearchResult
	searchTopK   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{fingerprints: map[string]bool{}}
}

func (f *fakeAPI) HasCollection(context.Context, string) (bool, error) { return f.hasColl, nil }

func (f *fakeAPI) CreateCollection(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
	f.created = schema
	f.hasColl = true
	return nil
}

func (f *fakeAPI) CreateIndex(context.Context, string, string, entity.Index, bool, ...client.IndexOption) error {
	f.indexed = true
	return nil
}

func (f *fakeAPI) LoadCollection(context.Context, string, bool, ...client.LoadCollectionOption) error {
	f.loaded = true
	return nil
}

func (f *fakeAPI) Query(_ context.Context, _ string, _ []string, expr string, _ []string, _ ...client.SearchQueryOptionFunc) (client.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastExpr = expr
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	for fp := range f.fingerprints {
		if expr == `fingerprint == "`+fp+`"` {
			return client.ResultSet{entity.NewColumnVarChar(FieldFingerprint, []string{fp})}, nil
		}
	}
	return client.ResultSet{entity.NewColumnVarChar(FieldFingerprint, []string{})}, nil
}

func (f *fakeAPI) Insert(_ context.Context, _ string, _ string, columns ...entity.Column) (entity.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	for _, c := range columns {
		if c.Name() == FieldFingerprint {
			fp, _ := c.GetAsString(0)
			f.fingerprints[fp] = true
		}
	}
	f.inserts++
	return entity.NewColumnInt64(FieldID, []int64{int64(f.inserts)}), nil
}

func (f *fakeAPI) Flush(context.Context, string, bool, ...client.FlushOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakeAPI) Search(_ context.Context, _ string, _ []string, _ string, _ []string, _ []entity.Vector, _ string, _ entity.MetricType, topK int, _ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	f.searchTopK = topK
	return f.searchRes, nil
}

func TestStore_EnsureCollection(t *testing.T) {
	api := newFakeAPI()
	s := newStore(api, StoreOptions{Dimension: 4})

	require.NoError(t, s.EnsureCollection(context.Background()))
	require.NotNil(t, api.created)
	assert.Equal(t, DefaultCollection, api.created.CollectionName)
	assert.Len(t, api.created.Fields, 4)
	assert.True(t, api.indexed)
	assert.True(t, api.loaded)

	missingDim := newStore(newFakeAPI(), StoreOptions{})
	assert.Error(t, missingDim.EnsureCollection(context.Background()))
}

func TestStore_InsertDeduplicates(t *testing.T) {
	api := newFakeAPI()
	s := newStore(api, StoreOptions{Dimension: 2})
	ctx := context.Background()

	out, err := s.Insert(ctx, []float32{1, 0}, "text=Login")
	require.NoError(t, err)
	assert.Equal(t, healing.InsertInserted, out)

	out, err = s.Insert(ctx, []float32{1, 0}, "text=Login")
	require.NoError(t, err)
	assert.Equal(t, healing.InsertDuplicate, out)

	assert.Equal(t, 1, api.inserts)
	assert.Equal(t, 1, api.flushes)
	assert.Equal(t, `fingerprint == "`+domain.Fingerprint("text=Login")+`"`, api.lastExpr)
}

func TestStore_InsertFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fakeAPI)
		vector []float32
	}{
		{"dimension mismatch", func(*fakeAPI) {}, []float32{1, 2, 3}},
		{"query error", func(a *fakeAPI) { a.queryErr = errors.New("unavailable") }, []float32{1, 2}},
		{"insert error", func(a *fakeAPI) { a.insertErr = errors.New("quota") }, []float32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			tt.setup(api)
			s := newStore(api, StoreOptions{Dimension: 2})

			out, err := s.Insert(context.Background(), tt.vector, "x")
			require.Error(t, err)
			assert.Equal(t, healing.InsertFailed, out)
		})
	}
}

func TestStore_Search(t *testing.T) {
	api := newFakeAPI()
	api.searchRes = []client.SearchResult{{
		ResultCount: 2,
		Scores:      []float32{0.91, 0.42},
		Fields:      client.ResultSet{entity.NewColumnVarChar(FieldText, []string{"a", "b"})},
	}}
	s := newStore(api, StoreOptions{Dimension: 2})

	hits, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 5, api.searchTopK)
	assert.Equal(t, "a", hits[0].Text)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-6)

	hits, err = s.Search(context.Background(), []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = s.Search(context.Background(), []float32{1}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEscapeExpr(t *testing.T) {
	assert.Equal(t, `a\"b\\c`, escapeExpr(`a"b\c`))
}
