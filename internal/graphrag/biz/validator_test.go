package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
)

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict("```json\n{\"is_valid\": false, \"reason\": \"幻觉\", \"action\": \"retry_generation\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, ValidationVerdict{IsValid: false, Reason: "幻觉", Action: ActionRetryGeneration}, v)

	v, err = ParseVerdict(`{"is_valid": false, "reason": "x", "action": "rewrite"}`)
	require.NoError(t, err)
	assert.Equal(t, ActionUnknown, v.Action)
}

func TestParseVerdictStrict(t *testing.T) {
	for name, reply := range map[string]string{
		"unknown field":  `{"is_valid": true, "reason": "", "action": "pass", "score": 5}`,
		"missing action": `{"is_valid": true, "reason": "fine"}`,
		"missing reason": `{"is_valid": true, "action": "pass"}`,
		"missing valid":  `{"reason": "ok", "action": "pass"}`,
		"no object":      `pass`,
		"wrong type":     `{"is_valid": "yes", "reason": "", "action": "pass"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVerdict(reply)
			assert.Error(t, err)
		})
	}
}

func TestValidatorFailsOpen(t *testing.T) {
	m := metrics.New()

	v, ok := NewValidator(&scriptedChat{errs: []error{errors.New("timeout")}}, 0, m).
		Validate(context.Background(), "q", "a", "c")
	assert.False(t, ok)
	assert.Equal(t, ValidationVerdict{IsValid: true, Action: ActionPass}, v)

	v, ok = NewValidator(&scriptedChat{replies: []string{"看起来不错"}}, 0, m).
		Validate(context.Background(), "q", "a", "c")
	assert.False(t, ok)
	assert.Equal(t, ActionPass, v.Action)

	assert.EqualValues(t, 2, m.Stats()["runs"].(map[string]any)["validator_failopen"])
}

func TestValidatorPrompt(t *testing.T) {
	chat := &scriptedChat{replies: []string{`{"is_valid": true, "reason": "准确", "action": "pass"}`}}
	v, ok := NewValidator(chat, 0, metrics.New()).Validate(context.Background(), "问题", "回答", "上下文")

	require.True(t, ok)
	assert.Equal(t, "准确", v.Reason)
	require.Len(t, chat.calls, 1)
	assert.Equal(t, "【上下文】\n上下文\n\n【用户问题】\n问题\n\n【AI 回答】\n回答", chat.calls[0][1].Content)
	assert.Contains(t, chat.calls[0][0].Content, "retry_retrieval")
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionPass, ParseAction(" PASS "))
	assert.Equal(t, ActionRetryRetrieval, ParseAction("retry_retrieval"))
	assert.Equal(t, ActionRetryGeneration, ParseAction("retry_generation"))
	assert.Equal(t, ActionUnknown, ParseAction(""))
	assert.Equal(t, StatusError, StatusOf(ActionUnknown))
	assert.Equal(t, "retry_generation", ActionRetryGeneration.String())
}
