package healing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-heal-api/internal/domain/entity"
)

func TestParseRouteDecision(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    entity.RouteDecision
	}{
		{
			name:    "well formed token query",
			content: `{"lang":"en","query_kind":"token","embedding_model":"en","search_mode":"single","rerank_weight":0.3,"reason":"id"}`,
			want:    entity.RouteDecision{Lang: "en", QueryKind: "token", EmbeddingModel: "en", SearchMode: entity.SearchSingle, RerankWeight: 0.3, Reason: "id"},
		},
		{
			name:    "fenced json with natural query",
			content: "```json\n{\"lang\":\"zh\",\"query_kind\":\"natural\",\"embedding_model\":\"zh\",\"search_mode\":\"dual\",\"rerank_weight\":0.9,\"reason\":\"phrase\"}\n```",
			want:    entity.RouteDecision{Lang: "zh", QueryKind: "natural", EmbeddingModel: "zh", SearchMode: entity.SearchDual, RerankWeight: 0.9, Reason: "phrase"},
		},
		{
			name:    "weight clamped",
			content: `{"lang":"en","embedding_model":"en","search_mode":"dual","rerank_weight":1.7}`,
			want:    entity.RouteDecision{Lang: "en", EmbeddingModel: "en", SearchMode: entity.SearchDual, RerankWeight: 1},
		},
		{
			name:    "negative weight clamped",
			content: `{"lang":"en","embedding_model":"en","search_mode":"single","rerank_weight":-0.2}`,
			want:    entity.RouteDecision{Lang: "en", EmbeddingModel: "en", SearchMode: entity.SearchSingle, RerankWeight: 0},
		},
		{
			name:    "unknown model derived from lang, mode from query kind, default dual weight",
			content: `{"lang":"ZH","query_kind":"natural","embedding_model":"bge-m3","search_mode":"both"}`,
			want:    entity.RouteDecision{Lang: "zh", QueryKind: "natural", EmbeddingModel: "zh", SearchMode: entity.SearchDual, RerankWeight: defaultDualRerankWeight},
		},
		{
			name:    "missing everything",
			content: `{}`,
			want:    entity.RouteDecision{Lang: "en", EmbeddingModel: "en", SearchMode: entity.SearchSingle, RerankWeight: defaultSingleRerankWeight},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRouteDecision(tt.content))
		})
	}
}

func TestParseRouteDecision_NonJSONFallsBack(t *testing.T) {
	for _, content := range []string{"", "I think this is english", `{"lang": "en",`, `{"rerank_weight":"high"}`} {
		d := parseRouteDecision(content)
		assert.True(t, d.Fallback, content)
		assert.Equal(t, entity.LangEN, d.EmbeddingModel)
		assert.Equal(t, entity.SearchSingle, d.SearchMode)
		assert.Equal(t, 0.9, d.RerankWeight)
		assert.InDelta(t, 1.0, d.RerankWeight+d.VectorWeight(), 1e-12)
	}
}

func TestRouter_Route(t *testing.T) {
	chat := &fakeChatModel{}
	r := NewRouter(&fakeFactory{model: chat}, LLMOptions{Provider: "groq"}, 2)

	nodes := []*entity.ElementNode{node("A", "a"), node("B", "b"), node("C", "c")}
	d, err := r.Route(context.Background(), "by=id, value=btn_old", nodes)
	require.NoError(t, err)
	assert.Equal(t, entity.SearchSingle, d.SearchMode)

	routeCalls, arbiterCalls := chat.calls()
	assert.Equal(t, 1, routeCalls)
	assert.Zero(t, arbiterCalls)

	prompt := chat.prompts[0]
	assert.Contains(t, prompt, "by=id, value=btn_old")
	assert.Contains(t, prompt, nodes[1].Desc)
	assert.NotContains(t, prompt, nodes[2].Desc)
}

func TestRouter_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	chat := &fakeChatModel{route: func() (string, error) { return "", boom }}
	r := NewRouter(&fakeFactory{model: chat}, LLMOptions{}, 0)

	_, err := r.Route(context.Background(), "q", []*entity.ElementNode{node("A", "")})
	assert.ErrorIs(t, err, boom)
}

func TestRouter_ResponseFormatFallback(t *testing.T) {
	calls := 0
	chat := &fakeChatModel{route: func() (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("400: 'response_format' is not supported by this model")
		}
		return `{"lang":"en","search_mode":"dual","rerank_weight":0.8}`, nil
	}}
	r := NewRouter(&fakeFactory{model: chat}, LLMOptions{}, 0)

	d, err := r.Route(context.Background(), "q", []*entity.ElementNode{node("A", "")})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, entity.SearchDual, d.SearchMode)
}

func TestBuildSample(t *testing.T) {
	nodes := []*entity.ElementNode{node("A", ""), node("B", "")}
	sample := buildSample(nodes, 10)
	assert.Equal(t, 2, strings.Count(sample, "- text="))
	assert.Empty(t, buildSample(nil, 10))
}

func TestRouter_Cache(t *testing.T) {
	chat := &fakeChatModel{}
	cache := &memRouteCache{}
	r := NewRouter(&fakeFactory{model: chat}, LLMOptions{}, 0).WithCache(cache)
	nodes := []*entity.ElementNode{node("A", "a")}
	ctx := context.Background()

	first, err := r.Route(ctx, "by=id, value=a", nodes)
	require.NoError(t, err)
	second, err := r.Route(ctx, "by=id, value=a", nodes)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	routeCalls, _ := chat.calls()
	assert.Equal(t, 1, routeCalls, "second call served from cache")

	_, err = r.Route(ctx, "by=id, value=b", nodes)
	require.NoError(t, err)
	routeCalls, _ = chat.calls()
	assert.Equal(t, 2, routeCalls)
}

func TestRouter_CacheSkipsFallback(t *testing.T) {
	chat := &fakeChatModel{route: func() (string, error) { return "not json", nil }}
	cache := &memRouteCache{}
	r := NewRouter(&fakeFactory{model: chat}, LLMOptions{}, 0).WithCache(cache)

	d, err := r.Route(context.Background(), "q", []*entity.ElementNode{node("A", "")})
	require.NoError(t, err)
	assert.True(t, d.Fallback)
	assert.Empty(t, cache.entries)
}
