package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-heal-api/internal/config"
)

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		DefaultProvider: "Groq",
		Providers: map[string]config.ProviderConfig{
			"Groq": {
				APIKey:      "gsk-test",
				BaseURL:     "http://127.0.0.1:1/openai/v1",
				Model:       "llama-3.1-8b-instant",
				Temperature: 0.1,
				Timeout:     time.Second,
			},
			"nokey": {Model: "m"},
		},
	}
}

func TestEinoFactory_Get(t *testing.T) {
	f := NewEinoFactory(testConfig())
	ctx := context.Background()

	def, err := f.Get(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, def)

	named, err := f.Get(ctx, " GROQ ")
	require.NoError(t, err)
	assert.Same(t, def, named, "models are cached per provider")

	_, err = f.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	_, err = f.Get(ctx, "nokey")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no api key")

	assert.Equal(t, []string{"groq", "nokey"}, f.Providers())
}

func TestChatModelConfig(t *testing.T) {
	c := chatModelConfig(config.ProviderConfig{Model: "m", Temperature: 0.1})
	assert.Nil(t, c.MaxTokens)
	require.NotNil(t, c.Temperature)
	assert.InDelta(t, 0.1, *c.Temperature, 1e-6)

	c = chatModelConfig(config.ProviderConfig{MaxTokens: 256})
	require.NotNil(t, c.MaxTokens)
	assert.Equal(t, 256, *c.MaxTokens)
}
