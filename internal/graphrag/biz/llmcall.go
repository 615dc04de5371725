package biz

import (
	"context"
	"time"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/pkg/llm"
)

// chat 调用对话模型并记录指标，timeout 大于 0 时限制本次调用。
func chat(ctx context.Context, m *metrics.GraphRAGMetrics, mode string, p llm.ChatProvider, timeout time.Duration, msgs []llm.Message) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.Chat(ctx, msgs)
	m.RecordLLMCall(mode, time.Since(start), err)
	return out, err
}

func orDefault(m *metrics.GraphRAGMetrics) *metrics.GraphRAGMetrics {
	if m == nil {
		return metrics.Default()
	}
	return m
}
