package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/kart-io/graphrag/pkg/llm"
)

// EmbeddingProvider 带重试与熔断的 Embedding 供应商。
type EmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	breaker  *Breaker
}

var _ llm.EmbeddingProvider = (*EmbeddingProvider)(nil)

// WrapEmbedding 包装 Embedding 供应商。
func WrapEmbedding(p llm.EmbeddingProvider, retry *RetryConfig, breaker *BreakerConfig) *EmbeddingProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &EmbeddingProvider{
		provider: p,
		retry:    retry,
		breaker:  NewBreaker(p.Name()+"/embedding", breaker),
	}
}

// Embed 为多个文本生成向量嵌入。
func (r *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := Do(ctx, r.retry, r.breaker, func() error {
		var err error
		out, err = r.provider.Embed(ctx, texts)
		return err
	})
	return out, err
}

// EmbedSingle 为单个文本生成向量嵌入。
func (r *EmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := Do(ctx, r.retry, r.breaker, func() error {
		var err error
		out, err = r.provider.EmbedSingle(ctx, text)
		return err
	})
	return out, err
}

// Name 返回供应商名称。
func (r *EmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// Ping 直接探测底层供应商，不经过重试与熔断。
func (r *EmbeddingProvider) Ping(ctx context.Context) error {
	return ping(ctx, r.provider)
}

// Breaker 返回熔断器，用于监控。
func (r *EmbeddingProvider) Breaker() *Breaker {
	return r.breaker
}

// ChatProvider 带重试与熔断的 Chat 供应商。
type ChatProvider struct {
	provider llm.ChatProvider
	retry    *RetryConfig
	breaker  *Breaker
}

var _ llm.ChatProvider = (*ChatProvider)(nil)

// WrapChat 包装 Chat 供应商，mode 区分同一后端的不同调用模式。
func WrapChat(p llm.ChatProvider, mode string, retry *RetryConfig, breaker *BreakerConfig) *ChatProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &ChatProvider{
		provider: p,
		retry:    retry,
		breaker:  NewBreaker(p.Name()+"/"+mode, breaker),
	}
}

// Chat 进行多轮对话。
func (r *ChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var out string
	err := Do(ctx, r.retry, r.breaker, func() error {
		var err error
		out, err = r.provider.Chat(ctx, messages)
		return err
	})
	return out, err
}

// Generate 根据提示生成文本。
func (r *ChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	var out string
	err := Do(ctx, r.retry, r.breaker, func() error {
		var err error
		out, err = r.provider.Generate(ctx, prompt, systemPrompt)
		return err
	})
	return out, err
}

// Name 返回供应商名称。
func (r *ChatProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// Ping 直接探测底层供应商，不经过重试与熔断。
func (r *ChatProvider) Ping(ctx context.Context) error {
	return ping(ctx, r.provider)
}

// Breaker 返回熔断器，用于监控。
func (r *ChatProvider) Breaker() *Breaker {
	return r.breaker
}

func ping(ctx context.Context, p any) error {
	if pinger, ok := p.(llm.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// IsRetryableError 判断错误是否可重试：网络错误、5xx、429、408 可重试，
// 熔断与上下文错误不重试。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || isContextError(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"status code 5",
		"server error",
		"status code 429",
		"status code 408",
		"connection reset",
		"EOF",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
