package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ArbiterTemplate(t *testing.T) {
	r := NewRegistry()
	tpl, err := r.ChatTemplate(PromptArbiterV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"old_by":     "id",
		"old_value":  "btn_old",
		"candidates": "[0]\nscore=0.9100\ntext=text=Submit",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "btn_old")
	assert.Contains(t, msgs[1].Content, `{"index"`)

	again, err := r.ChatTemplate(PromptArbiterV1)
	require.NoError(t, err)
	assert.Same(t, tpl, again)
}

func TestRegistry_RouteTemplate(t *testing.T) {
	tpl, err := NewRegistry().ChatTemplate(PromptRouteV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"query":  "by=id, value=btn_old",
		"sample": "text=Submit | content_desc=",
	})
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "by=id, value=btn_old")
	assert.Contains(t, msgs[1].Content, `"rerank_weight": 0.0`)
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := NewRegistry().ChatTemplate(PromptID("missing_v9"))
	assert.Error(t, err)
}
