package healing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-heal-api/internal/domain/entity"
)

func TestFuse_ScoreInvariant(t *testing.T) {
	cands := []*entity.Candidate{candidate("a", 0.9), candidate("b", 0.2), candidate("c", 0.5)}
	scores := []float64{0.1, 0.95, 0.4}
	const w = 0.8

	out := Fuse(cands, scores, w, 3)
	require.Len(t, out, 3)
	for _, c := range out {
		require.NotNil(t, c.FinalScore)
		require.NotNil(t, c.RerankScore)
		assert.InDelta(t, (1-w)*c.VectorScore+w*(*c.RerankScore), *c.FinalScore, 1e-12)
	}
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, *out[i-1].FinalScore, *out[i].FinalScore)
	}
	assert.Contains(t, out[0].Text, "text=b")
}

func TestFuse_TopKAndStableTies(t *testing.T) {
	cands := []*entity.Candidate{
		candidate("first", 0.5),
		candidate("second", 0.5),
		candidate("third", 0.5),
		candidate("fourth", 0.5),
		candidate("fifth", 0.1),
	}
	out := Fuse(cands, []float64{0.5, 0.5, 0.5, 0.5, 0.1}, 0.5, 3)

	require.Len(t, out, 3)
	assert.Contains(t, out[0].Text, "text=first")
	assert.Contains(t, out[1].Text, "text=second")
	assert.Contains(t, out[2].Text, "text=third")
}

func TestFuse_WeightClamped(t *testing.T) {
	out := Fuse([]*entity.Candidate{candidate("a", 0.4)}, []float64{0.9}, 3, 3)
	assert.InDelta(t, 0.9, *out[0].FinalScore, 1e-12)
}

func TestFuser_ZeroCandidatesSkipsRerank(t *testing.T) {
	rr := &fakeReranker{}
	out, err := NewFuser(rr, 3).Rerank(context.Background(), "q", 0.5, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, rr.calls)
}

func TestFuser_ScoreCountMismatch(t *testing.T) {
	rr := &fakeReranker{scores: func(string, []string) []float64 { return []float64{1} }}
	_, err := NewFuser(rr, 3).Rerank(context.Background(), "q", 0.5,
		[]*entity.Candidate{candidate("a", 0.1), candidate("b", 0.2)})
	assert.ErrorIs(t, err, ErrScoreCountMismatch)
}

func TestFuser_RerankError(t *testing.T) {
	boom := errors.New("503")
	_, err := NewFuser(&fakeReranker{err: boom}, 3).Rerank(context.Background(), "q", 0.5,
		[]*entity.Candidate{candidate("a", 0.1)})
	assert.ErrorIs(t, err, boom)
}

func TestFuser_SendsCandidateTextsInOrder(t *testing.T) {
	var got []string
	rr := &fakeReranker{scores: func(_ string, c []string) []float64 {
		got = c
		return make([]float64, len(c))
	}}
	cands := []*entity.Candidate{candidate("a", 0.1), candidate("b", 0.2)}
	_, err := NewFuser(rr, 3).Rerank(context.Background(), "q", 0.5, cands)
	require.NoError(t, err)
	assert.Equal(t, []string{cands[0].Text, cands[1].Text}, got)
}
