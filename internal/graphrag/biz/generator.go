package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/pkg/llm"
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
)

// GenerateInput 生成回答所需的输入。
type GenerateInput struct {
	Context  string
	History  []llm.Message
	Question string
	// RetryCount 与 PreviousReason 用于把上次校验反馈带给模型。
	RetryCount     int
	PreviousReason string
}

// AnswerGenerator 起草回答。
type AnswerGenerator interface {
	Generate(ctx context.Context, in GenerateInput) string
}

// Generator 基于 smart 模型的回答生成器。
type Generator struct {
	chat    llm.ChatProvider
	timeout time.Duration
	metrics *metrics.GraphRAGMetrics
}

var _ AnswerGenerator = (*Generator)(nil)

// NewGenerator 创建生成器实例。
func NewGenerator(chat llm.ChatProvider, timeout time.Duration, m *metrics.GraphRAGMetrics) *Generator {
	return &Generator{chat: chat, timeout: timeout, metrics: orDefault(m)}
}

// Generate 生成回答，失败时返回 ApologyAnswer。
func (g *Generator) Generate(ctx context.Context, in GenerateInput) string {
	answer, err := chat(ctx, g.metrics, llmopts.ModeSmart, g.chat, g.timeout, BuildGenerationMessages(in))
	if err != nil {
		logger.Errorw("answer generation failed", "error", err.Error(), "retry_count", in.RetryCount)
		return ApologyAnswer
	}
	logger.Infow("answer generated", "length", len([]rune(answer)), "retry_count", in.RetryCount)
	return answer
}

// BuildGenerationMessages 系统提示（含上下文）+ 历史消息 + 当前问题。
func BuildGenerationMessages(in GenerateInput) []llm.Message {
	ragContext := in.Context
	if in.RetryCount > 0 && in.PreviousReason != "" {
		ragContext += "\n\n" + retryFeedback(in.PreviousReason)
	}

	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: generationPrompt(ragContext)})
	msgs = append(msgs, in.History...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: in.Question})
	return msgs
}
