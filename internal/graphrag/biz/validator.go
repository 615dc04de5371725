package biz

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/pkg/llm"
	llmopts "github.com/kart-io/graphrag/pkg/options/llm"
	"github.com/kart-io/graphrag/pkg/utils/json"
)

// AnswerValidator 校验回答。ok 为 false 表示校验本身失败并已放行。
type AnswerValidator interface {
	Validate(ctx context.Context, question, answer, ragContext string) (verdict ValidationVerdict, ok bool)
}

// Validator 基于 strict 模型的回答校验器。
type Validator struct {
	chat    llm.ChatProvider
	timeout time.Duration
	metrics *metrics.GraphRAGMetrics
}

var _ AnswerValidator = (*Validator)(nil)

// NewValidator 创建校验器实例。
func NewValidator(chat llm.ChatProvider, timeout time.Duration, m *metrics.GraphRAGMetrics) *Validator {
	return &Validator{chat: chat, timeout: timeout, metrics: orDefault(m)}
}

func failOpen() ValidationVerdict {
	return ValidationVerdict{IsValid: true, Action: ActionPass}
}

// Validate 调用模型评估回答，出错时放行。
func (v *Validator) Validate(ctx context.Context, question, answer, ragContext string) (ValidationVerdict, bool) {
	reply, err := chat(ctx, v.metrics, llmopts.ModeStrict, v.chat, v.timeout, []llm.Message{
		{Role: llm.RoleSystem, Content: validationSystemPrompt},
		{Role: llm.RoleUser, Content: validationUserPrompt(ragContext, question, answer)},
	})
	if err != nil {
		v.metrics.RecordValidatorFailOpen()
		logger.Errorw("answer validation failed, passing through", "error", err.Error())
		return failOpen(), false
	}

	verdict, err := ParseVerdict(reply)
	if err != nil {
		v.metrics.RecordValidatorFailOpen()
		logger.Errorw("validation reply rejected, passing through", "error", err.Error(), "reply", truncate(reply, 200))
		return failOpen(), false
	}
	return verdict, true
}

type verdictWire struct {
	IsValid *bool   `json:"is_valid"`
	Reason  *string `json:"reason"`
	Action  *string `json:"action"`
}

// ParseVerdict 严格解析回复中的第一个 JSON 对象。
func ParseVerdict(reply string) (ValidationVerdict, error) {
	obj, ok := firstJSONObject(reply)
	if !ok {
		return ValidationVerdict{}, errNoJSONObject
	}

	var w verdictWire
	if err := json.UnmarshalStrict([]byte(obj), &w); err != nil {
		return ValidationVerdict{}, err
	}
	if w.Action == nil {
		return ValidationVerdict{}, errors.New("verdict is missing action")
	}
	if w.Reason == nil {
		return ValidationVerdict{}, errors.New("verdict is missing reason")
	}
	if w.IsValid == nil {
		return ValidationVerdict{}, errors.New("verdict is missing is_valid")
	}

	return ValidationVerdict{IsValid: *w.IsValid, Reason: *w.Reason, Action: ParseAction(*w.Action)}, nil
}
