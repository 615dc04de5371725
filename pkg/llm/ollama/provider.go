// Package ollama 提供 Ollama LLM 供应商实现。
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/graphrag/pkg/llm"
	"github.com/kart-io/graphrag/pkg/utils/httpclient"
)

const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。
type Config struct {
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	EmbedModel string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`

	// Temperature 为 nil 时使用模型默认值。
	Temperature *float64 `json:"temperature" mapstructure:"temperature"`
	// MaxTokens 对应 Ollama 的 num_predict。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
	// JSONFormat 要求模型只输出 JSON。
	JSONFormat bool `json:"json_format" mapstructure:"json_format"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		ChatModel:  "qwen2.5:7b",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider Ollama 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Ollama 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := llm.ConfigString(configMap, "base_url"); ok {
		cfg.BaseURL = strings.TrimRight(v, "/")
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
	if v, ok := llm.ConfigFloat(configMap, "temperature"); ok {
		cfg.Temperature = &v
	}
	if v, ok := configMap["max_tokens"].(int); ok && v > 0 {
		cfg.MaxTokens = v
	}
	if v, ok := configMap["json_format"].(bool); ok {
		cfg.JSONFormat = v
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Ollama 供应商。
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

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	req := embedRequest{Model: p.config.EmbedModel, Input: texts}
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/api/embed", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed 请求失败: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed 返回 %d 个向量，期望 %d 个", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
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

type modelOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *modelOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func (p *Provider) options() *modelOptions {
	if p.config.Temperature == nil && p.config.MaxTokens == 0 {
		return nil
	}
	return &modelOptions{Temperature: p.config.Temperature, NumPredict: p.config.MaxTokens}
}

func (p *Provider) format() string {
	if p.config.JSONFormat {
		return "json"
	}
	return ""
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{Role: string(msg.Role), Content: msg.Content}
	}

	req := chatRequest{
		Model:    p.config.ChatModel,
		Messages: chatMessages,
		Format:   p.format(),
		Options:  p.options(),
	}
	var resp chatResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", fmt.Errorf("ollama chat 请求失败: %w", err)
	}
	return resp.Message.Content, nil
}

type generateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options *modelOptions `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	req := generateRequest{
		Model:   p.config.ChatModel,
		Prompt:  prompt,
		System:  systemPrompt,
		Format:  p.format(),
		Options: p.options(),
	}
	var resp generateResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", fmt.Errorf("ollama generate 请求失败: %w", err)
	}
	return resp.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Ping 检查 Ollama 服务是否可用。
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// ListModels 列出可用模型。
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	var resp tagsResponse
	if err := p.client.GetJSON(ctx, p.config.BaseURL+"/api/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("ollama 服务不可用: %w", err)
	}
	models := make([]string, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = m.Name
	}
	return models, nil
}
