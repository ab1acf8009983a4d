package healing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-heal-api/internal/domain/entity"
	apperrors "self-heal-api/pkg/errors"
)

const submitDump = `<hierarchy rotation="0">
  <node index="0" text="Submit" resource-id="btn_submit" class="android.widget.Button" content-desc="" bounds="[50,1200][1030,1320]"/>
</hierarchy>`

type harness struct {
	emb    *fakeEmbedder
	rerank *fakeReranker
	store  *memoryStore
	chat   *fakeChatModel
	engine *Engine
}

func newHarness() *harness {
	h := &harness{
		emb:    &fakeEmbedder{},
		rerank: &fakeReranker{},
		store:  newMemoryStore(),
		chat:   &fakeChatModel{},
	}
	h.engine = NewEngine(Deps{
		Embedder: h.emb,
		Reranker: h.rerank,
		Store:    h.store,
		LLM:      &fakeFactory{model: h.chat},
	}, Config{RecallK: 5, TopK: 3, InsertConcurrency: 4})
	return h
}

func androidRequest(dump string) *entity.HealRequest {
	return &entity.HealRequest{
		AppID:      "com.shop",
		PageID:     "CheckoutActivity",
		Platform:   "android",
		OldLocator: entity.Locator{By: "id", Value: "btn_old"},
		PageDump:   dump,
	}
}

func TestEngine_HealsSingleAndroidNode(t *testing.T) {
	h := newHarness()

	resp, err := h.engine.Heal(context.Background(), androidRequest(submitDump))
	require.NoError(t, err)

	assert.True(t, resp.Healed)
	assert.Equal(t, &entity.Locator{By: "id", Value: "btn_submit"}, resp.NewLocator)
	assert.Greater(t, resp.Confidence, 0.0)
	assert.LessOrEqual(t, resp.Confidence, 1.0)
	require.Len(t, resp.Details.Candidates, 1)
	assert.Equal(t, *resp.Details.Candidates[0].FinalScore, resp.Confidence)
	require.NotNil(t, resp.Details.Route)
	assert.Equal(t, entity.SearchSingle, resp.Details.Route.SearchMode)

	routeCalls, arbiterCalls := h.chat.calls()
	assert.Equal(t, 1, routeCalls)
	assert.Equal(t, 1, arbiterCalls)
	assert.Equal(t, 1, h.rerank.calls)
	assert.Equal(t, 1, h.store.size())
}

func TestEngine_RepeatedRequestsDoNotGrowStore(t *testing.T) {
	h := newHarness()
	for i := 0; i < 3; i++ {
		_, err := h.engine.Heal(context.Background(), androidRequest(submitDump))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.store.size())
}

func TestEngine_WebWithoutInteractiveElementsShortCircuits(t *testing.T) {
	h := newHarness()
	req := androidRequest(`<html><body><p>Nothing to click</p></body></html>`)
	req.Platform = "web"

	resp, err := h.engine.Heal(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Healed)
	assert.Zero(t, resp.Confidence)
	assert.Nil(t, resp.NewLocator)

	routeCalls, arbiterCalls := h.chat.calls()
	assert.Zero(t, routeCalls)
	assert.Zero(t, arbiterCalls)
	assert.Zero(t, h.emb.callCount())
	assert.Zero(t, h.rerank.calls)
}

func TestEngine_InputErrorsFailFast(t *testing.T) {
	h := newHarness()

	req := androidRequest(submitDump)
	req.Platform = "ios"
	_, err := h.engine.Heal(context.Background(), req)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeUnsupportedPlatform, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPStatus)

	req = androidRequest(submitDump)
	req.OldLocator = entity.Locator{}
	_, err = h.engine.Heal(context.Background(), req)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)

	_, err = h.engine.Heal(context.Background(), androidRequest(`<hierarchy><node`))
	assert.Equal(t, apperrors.CodeParseFailed, apperrors.AsAppError(err).Code)

	assert.Zero(t, h.emb.callCount())
	routeCalls, _ := h.chat.calls()
	assert.Zero(t, routeCalls)
}

func TestEngine_DownstreamErrorsPropagate(t *testing.T) {
	h := newHarness()
	h.emb.err = errors.New("embedding 502")
	_, err := h.engine.Heal(context.Background(), androidRequest(submitDump))
	assert.Equal(t, apperrors.CodeEmbeddingFailed, apperrors.AsAppError(err).Code)

	h = newHarness()
	h.rerank.err = errors.New("rerank 500")
	_, err = h.engine.Heal(context.Background(), androidRequest(submitDump))
	assert.Equal(t, apperrors.CodeRerankFailed, apperrors.AsAppError(err).Code)

	h = newHarness()
	h.chat.arbiter = func() (string, error) { return "", errors.New("llm down") }
	_, err = h.engine.Heal(context.Background(), androidRequest(submitDump))
	assert.Equal(t, apperrors.CodeLLMCallFailed, apperrors.AsAppError(err).Code)
}

func TestEngine_ArbiterRejects(t *testing.T) {
	h := newHarness()
	h.chat.arbiter = func() (string, error) { return `{"index": -1, "reason": "no equivalent element"}`, nil }

	resp, err := h.engine.Heal(context.Background(), androidRequest(submitDump))
	require.NoError(t, err)
	assert.False(t, resp.Healed)
	assert.Zero(t, resp.Confidence)
	assert.Nil(t, resp.NewLocator)
	assert.Equal(t, "no equivalent element", resp.Details.Reason)
}

func TestEngine_NoRecallHitsSkipsRerankAndArbiter(t *testing.T) {
	h := newHarness()
	h.store.hits = [][]SearchHit{{{Score: 0.9, Text: "stale"}}}

	resp, err := h.engine.Heal(context.Background(), androidRequest(submitDump))
	require.NoError(t, err)
	assert.False(t, resp.Healed)
	assert.Equal(t, reasonNoCandidates, resp.Details.Reason)
	assert.Zero(t, h.rerank.calls)
	_, arbiterCalls := h.chat.calls()
	assert.Zero(t, arbiterCalls)
}

func collect(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestEngine_HealStreamOrder(t *testing.T) {
	h := newHarness()
	events := collect(h.engine.HealStream(context.Background(), androidRequest(submitDump)))

	require.Len(t, events, 2*len(Stages)+1)
	for i, st := range Stages {
		started, completed := events[2*i], events[2*i+1]
		assert.Equal(t, EventStageStarted, started.Kind)
		assert.Equal(t, st, started.Stage)
		assert.Equal(t, EventStageCompleted, completed.Kind)
		assert.Equal(t, st, completed.Stage)
		assert.Equal(t, i+1, completed.Step)
		assert.Equal(t, len(Stages), completed.Total)
	}
	assert.Equal(t, 1, events[1].Nodes)
	assert.NotNil(t, events[3].Route)
	assert.NotNil(t, events[5].Index)
	assert.Equal(t, 1, events[7].Candidates)

	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Kind)
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Healed)
}

func TestEngine_HealStreamErrorIsTerminal(t *testing.T) {
	h := newHarness()
	h.rerank.err = errors.New("rerank down")
	events := collect(h.engine.HealStream(context.Background(), androidRequest(submitDump)))

	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Kind)
	assert.Equal(t, apperrors.CodeRerankFailed, apperrors.AsAppError(last.Err).Code)

	// 出错前已完成的阶段保留
	completed := 0
	for _, ev := range events {
		if ev.Kind == EventStageCompleted {
			completed++
		}
		assert.NotEqual(t, EventResult, ev.Kind)
	}
	assert.Equal(t, 4, completed)
}

func TestEngine_HealStreamCancellation(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())

	ch := h.engine.HealStream(ctx, androidRequest(submitDump))
	first := <-ch
	assert.Equal(t, EventStageStarted, first.Kind)
	cancel()

	for ev := range ch {
		assert.NotEqual(t, EventResult, ev.Kind)
	}
	_, arbiterCalls := h.chat.calls()
	assert.Zero(t, arbiterCalls)
}

func TestEngine_DualModeEndToEnd(t *testing.T) {
	h := newHarness()
	h.chat.route = func() (string, error) {
		return `{"lang":"en","query_kind":"natural","embedding_model":"en","search_mode":"dual","rerank_weight":0.85,"reason":"phrase"}`, nil
	}
	req := androidRequest(submitDump)
	req.OldLocator = entity.Locator{By: "text", Value: "submit the order"}

	resp, err := h.engine.Heal(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Healed)
	assert.Equal(t, []string{"en", "zh"}, h.emb.calls)
	assert.Equal(t, 2, h.store.searches)
}
