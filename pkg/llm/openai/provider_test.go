package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/pkg/llm"
)

func newTestProvider(t *testing.T, extra map[string]any, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := map[string]any{
		"base_url":    srv.URL,
		"api_key":     "sk-test",
		"max_retries": 0,
		"timeout":     5 * time.Second,
	}
	for k, v := range extra {
		cfg[k] = v
	}
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	return p.(*Provider)
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)
}

func TestNewProviderParsesConfig(t *testing.T) {
	p, err := NewProvider(map[string]any{
		"api_key":      "k",
		"base_url":     "https://example.com/v1/",
		"chat_model":   "deepseek-chat",
		"temperature":  0.7,
		"max_tokens":   20000,
		"stop":         []any{"END", 1},
		"organization": "org",
	})
	require.NoError(t, err)
	cfg := p.(*Provider).config
	assert.Equal(t, "https://example.com/v1", cfg.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.ChatModel)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-9)
	assert.Equal(t, 20000, cfg.MaxTokens)
	assert.Equal(t, []string{"END"}, cfg.Stop)
}

func TestChatSendsZeroTemperatureAndJSONFormat(t *testing.T) {
	p := newTestProvider(t, map[string]any{
		"temperature": 0.0,
		"json_format": true,
		"max_tokens":  20000,
	}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		temp, ok := body["temperature"]
		assert.True(t, ok, "temperature 0 must be present")
		assert.Equal(t, 0.0, temp)
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
		assert.Equal(t, 20000.0, body["max_tokens"])

		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	})

	out, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGenerateOmitsUnsetTemperature(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, has := body["temperature"]
		assert.False(t, has)
		_, has = body["response_format"]
		assert.False(t, has)

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"答案"}}]}`))
	})

	out, err := p.Generate(context.Background(), "问题", "系统")
	require.NoError(t, err)
	assert.Equal(t, "答案", out)
}

func TestChatEmptyChoices(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	assert.Error(t, err)
}

func TestEmbedOrdersByIndex(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	})

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}

func TestEmbedMissingVector(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	})
	_, err := p.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	p := newTestProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o-mini"}]}`))
	})
	require.NoError(t, p.Ping(context.Background()))

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o-mini"}, models)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, llm.ListProviders(), ProviderName)
}
