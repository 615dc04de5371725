package biz

import (
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
)

// ModelInfo 模型配置信息，不包含密钥。
type ModelInfo struct {
	ModelType  string         `json:"model_type"`
	ModelName  string         `json:"model_name"`
	Provider   string         `json:"provider"`
	Parameters map[string]any `json:"parameters"`
}

// ModelCatalog 描述当前加载的模型。
type ModelCatalog struct {
	chat      *llmopts.ChatOptions
	embedding *llmopts.ProviderOptions
	dimension func() int
}

// NewModelCatalog 创建模型目录，dimension 返回已探测的向量维度，可为 nil。
func NewModelCatalog(chat *llmopts.ChatOptions, embedding *llmopts.ProviderOptions, dimension func() int) *ModelCatalog {
	return &ModelCatalog{chat: chat, embedding: embedding, dimension: dimension}
}

// List 依次返回 Fast、Smart、Strict 与 Embedding。
func (c *ModelCatalog) List() []ModelInfo {
	out := make([]ModelInfo, 0, 4)
	for _, m := range []struct {
		label, mode string
	}{
		{"LLM (Fast)", llmopts.ModeFast},
		{"LLM (Smart)", llmopts.ModeSmart},
		{"LLM (Strict)", llmopts.ModeStrict},
	} {
		params := map[string]any{}
		if mo := c.chat.Mode(m.mode); mo != nil {
			params["temperature"] = mo.Temperature
			params["max_tokens"] = mo.MaxTokens
		}
		out = append(out, ModelInfo{
			ModelType:  m.label,
			ModelName:  c.chat.ModelFor(m.mode),
			Provider:   providerLabel(&c.chat.ProviderOptions),
			Parameters: params,
		})
	}

	var dim any = "dynamic"
	if c.dimension != nil {
		if d := c.dimension(); d > 0 {
			dim = d
		}
	}
	out = append(out, ModelInfo{
		ModelType:  "Embedding",
		ModelName:  c.embedding.Model,
		Provider:   providerLabel(c.embedding),
		Parameters: map[string]any{"dimension": dim},
	})
	return out
}

func providerLabel(o *llmopts.ProviderOptions) string {
	return o.Provider + " (" + o.BaseURL + ")"
}
