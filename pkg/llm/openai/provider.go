// Package openai 提供 OpenAI 兼容接口的 LLM 供应商实现。
// DeepSeek、SiliconFlow、vLLM、LocalAI 等兼容服务通过 base_url 接入。
//
//	provider, err := llm.NewProvider("openai", map[string]any{
//	    "api_key":     "sk-xxx",
//	    "base_url":    "https://api.deepseek.com/v1",
//	    "chat_model":  "deepseek-chat",
//	    "temperature": 0.0,
//	    "json_format": true,
//	})
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/graphrag/pkg/llm"
	"github.com/kart-io/graphrag/pkg/utils/httpclient"
)

// ProviderName 是 OpenAI 供应商的名称标识符
const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config OpenAI 供应商配置。
type Config struct {
	BaseURL      string        `json:"base_url" mapstructure:"base_url"`
	APIKey       string        `json:"-" mapstructure:"api_key"`
	EmbedModel   string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel    string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries   int           `json:"max_retries" mapstructure:"max_retries"`
	Organization string        `json:"organization" mapstructure:"organization"`

	// Temperature 为 nil 时不下发，0 会被显式发送。
	Temperature *float64 `json:"temperature" mapstructure:"temperature"`
	TopP        float64  `json:"top_p" mapstructure:"top_p"`
	MaxTokens   int      `json:"max_tokens" mapstructure:"max_tokens"`
	Stop        []string `json:"stop" mapstructure:"stop"`

	// JSONFormat 设置 response_format 为 json_object。
	JSONFormat bool `json:"json_format" mapstructure:"json_format"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 OpenAI 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := llm.ConfigString(configMap, "base_url"); ok {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := llm.ConfigString(configMap, "api_key"); ok {
		cfg.APIKey = v
	}
	if v, ok := llm.ConfigString(configMap, "embed_model"); ok {
		cfg.EmbedModel = v
	}
	if v, ok := llm.ConfigString(configMap, "chat_model"); ok {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := llm.ConfigString(configMap, "organization"); ok {
		cfg.Organization = v
	}

	// 解析生成参数
	if v, ok := llm.ConfigFloat(configMap, "temperature"); ok {
		cfg.Temperature = &v
	}
	if v, ok := llm.ConfigFloat(configMap, "top_p"); ok {
		cfg.TopP = v
	}
	if v, ok := configMap["max_tokens"].(int); ok {
		cfg.MaxTokens = v
	}
	if v, ok := configMap["json_format"].(bool); ok {
		cfg.JSONFormat = v
	}
	switch val := configMap["stop"].(type) {
	case []string:
		cfg.Stop = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				cfg.Stop = append(cfg.Stop, s)
			}
		}
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed 为多个文本生成向量嵌入，结果按输入顺序排列。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embeddingResponse
	req := embeddingRequest{Model: p.config.EmbedModel, Input: texts}
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/embeddings", p.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings 请求失败: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("openai embeddings 缺少第 %d 个向量", i)
		}
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Stream         bool            `json:"stream"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{Role: string(msg.Role), Content: msg.Content}
	}

	req := chatRequest{
		Model:       p.config.ChatModel,
		Messages:    chatMessages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
		Stop:        p.config.Stop,
	}
	if p.config.JSONFormat {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/chat/completions", p.headers(), req, &resp); err != nil {
		return "", fmt.Errorf("openai chat 请求失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("未返回响应内容")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate 根据提示生成文本，systemPrompt 非空时作为 system 消息。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return p.Chat(ctx, messages)
}

// Ping 通过 /models 检查服务可用性与密钥有效性。
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型。
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.client.GetJSON(ctx, p.config.BaseURL+"/models", p.headers(), &result); err != nil {
		return nil, fmt.Errorf("openai 服务不可用: %w", err)
	}

	models := make([]string, len(result.Data))
	for i, m := range result.Data {
		models[i] = m.ID
	}
	return models, nil
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + p.config.APIKey}
	if p.config.Organization != "" {
		h["OpenAI-Organization"] = p.config.Organization
	}
	return h
}
