// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/graphrag/pkg/options"
)

var (
	_ options.IOptions = (*ProviderOptions)(nil)
	_ options.IOptions = (*ChatOptions)(nil)
)

// 对话模型的三种运行模式。
const (
	ModeSmart  = "smart"
	ModeFast   = "fast"
	ModeStrict = "strict"
)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（ollama, openai）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（OpenAI 兼容接口需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewProviderOptions 创建默认 LLM 供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://localhost:11434",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "nomic-embed-text"
	return opts
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// AddFlags adds provider flags; the caller supplies the group prefix,
// e.g. AddFlags(fs, "embedding") registers --embedding.provider.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "LLM provider (ollama, openai).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "LLM maximum number of retries.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "LLM organization ID (optional).")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	// OpenAI 供应商需要 API key
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for openai provider"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}

// ModeOptions 单个模式的模型与采样参数。
type ModeOptions struct {
	// Model 为空时沿用 ChatOptions.Model。
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max-tokens" mapstructure:"max-tokens"`
}

// ChatOptions 对话模型配置：共享供应商连接，按模式区分模型和温度。
type ChatOptions struct {
	ProviderOptions `mapstructure:",squash"`

	Smart  *ModeOptions `json:"smart" mapstructure:"smart"`
	Fast   *ModeOptions `json:"fast" mapstructure:"fast"`
	Strict *ModeOptions `json:"strict" mapstructure:"strict"`
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ChatOptions {
	return &ChatOptions{
		ProviderOptions: func() ProviderOptions {
			p := NewProviderOptions()
			p.Model = "qwen2.5:7b"
			return *p
		}(),
		Smart:  &ModeOptions{Temperature: 0.7, MaxTokens: 20000},
		Fast:   &ModeOptions{Temperature: 0.0, MaxTokens: 20000},
		Strict: &ModeOptions{Temperature: 0.0, MaxTokens: 20000},
	}
}

// Mode returns the options of the named mode, or nil.
func (o *ChatOptions) Mode(name string) *ModeOptions {
	switch name {
	case ModeSmart:
		return o.Smart
	case ModeFast:
		return o.Fast
	case ModeStrict:
		return o.Strict
	default:
		return nil
	}
}

// ModelFor returns the effective model name for a mode.
func (o *ChatOptions) ModelFor(name string) string {
	if m := o.Mode(name); m != nil && m.Model != "" {
		return m.Model
	}
	return o.Model
}

// ToModeConfigMap 生成指定模式的供应商配置。
func (o *ChatOptions) ToModeConfigMap(name string) map[string]any {
	cfg := o.ToConfigMap()
	cfg["chat_model"] = o.ModelFor(name)
	if m := o.Mode(name); m != nil {
		cfg["temperature"] = m.Temperature
		cfg["max_tokens"] = m.MaxTokens
	}
	return cfg
}

// AddFlags registers the shared provider flags plus one group per mode.
func (o *ChatOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.ProviderOptions.AddFlags(fs, prefixes...)
	if o.Smart == nil || o.Fast == nil || o.Strict == nil {
		d := NewChatOptions()
		o.Smart, o.Fast, o.Strict = d.Smart, d.Fast, d.Strict
	}
	for _, name := range []string{ModeSmart, ModeFast, ModeStrict} {
		m := o.Mode(name)
		p := options.Join(append(prefixes, name)...)
		fs.StringVar(&m.Model, p+"model", m.Model, fmt.Sprintf("Model used in %s mode (defaults to the shared model).", name))
		fs.Float64Var(&m.Temperature, p+"temperature", m.Temperature, fmt.Sprintf("Sampling temperature in %s mode.", name))
		fs.IntVar(&m.MaxTokens, p+"max-tokens", m.MaxTokens, fmt.Sprintf("Max tokens in %s mode.", name))
	}
}

// Complete fills missing modes with defaults.
func (o *ChatOptions) Complete() error {
	d := NewChatOptions()
	if o.Smart == nil {
		o.Smart = d.Smart
	}
	if o.Fast == nil {
		o.Fast = d.Fast
	}
	if o.Strict == nil {
		o.Strict = d.Strict
	}
	return o.ProviderOptions.Complete()
}

// Validate validates shared and per-mode settings.
func (o *ChatOptions) Validate() []error {
	if o == nil {
		return nil
	}
	errs := o.ProviderOptions.Validate()
	for _, name := range []string{ModeSmart, ModeFast, ModeStrict} {
		m := o.Mode(name)
		if m == nil {
			continue
		}
		if m.Temperature < 0 || m.Temperature > 2 {
			errs = append(errs, fmt.Errorf("%s.temperature must be within [0, 2]", name))
		}
		if m.MaxTokens <= 0 {
			errs = append(errs, fmt.Errorf("%s.max-tokens must be positive", name))
		}
	}
	return errs
}
