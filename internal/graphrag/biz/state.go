package biz

import (
	"strings"
	"time"

	"github.com/kart-io/graphrag/pkg/llm"
)

// Action 校验结论给出的下一步动作。
type Action int

const (
	// ActionUnknown 无法识别的动作，直接结束。
	ActionUnknown Action = iota
	// ActionPass 回答通过。
	ActionPass
	// ActionRetryRetrieval 需要重新检索。
	ActionRetryRetrieval
	// ActionRetryGeneration 需要重新生成。
	ActionRetryGeneration
)

// String returns the wire value of the action.
func (a Action) String() string {
	switch a {
	case ActionPass:
		return "pass"
	case ActionRetryRetrieval:
		return "retry_retrieval"
	case ActionRetryGeneration:
		return "retry_generation"
	default:
		return "unknown"
	}
}

// ParseAction maps a wire value to an Action; anything unrecognized is ActionUnknown.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return ActionPass
	case "retry_retrieval":
		return ActionRetryRetrieval
	case "retry_generation":
		return ActionRetryGeneration
	default:
		return ActionUnknown
	}
}

// ValidationStatus 写入会话状态的校验状态。
type ValidationStatus string

const (
	StatusPass            ValidationStatus = "pass"
	StatusRetryRetrieval  ValidationStatus = "retry_retrieval"
	StatusRetryGeneration ValidationStatus = "retry_generation"
	StatusError           ValidationStatus = "error"
)

// StatusOf converts an action into the persisted status.
func StatusOf(a Action) ValidationStatus {
	switch a {
	case ActionPass:
		return StatusPass
	case ActionRetryRetrieval:
		return StatusRetryRetrieval
	case ActionRetryGeneration:
		return StatusRetryGeneration
	default:
		return StatusError
	}
}

// MatchedEntity 一次检索中的实体匹配结果。
type MatchedEntity struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Type  string  `json:"type"`
}

// ValidationVerdict 校验器的结构化结论。
type ValidationVerdict struct {
	IsValid bool
	Reason  string
	Action  Action
}

// ConversationState 单个会话线程的状态，按线程持久化。
type ConversationState struct {
	Query            string           `json:"query"`
	Messages         []llm.Message    `json:"messages"`
	Entities         []string         `json:"entities"`
	GraphContext     string           `json:"graph_context"`
	RagContext       string           `json:"rag_context"`
	Answer           string           `json:"answer"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty"`
	ValidationReason string           `json:"validation_reason"`
	RetryCount       int              `json:"retry_count"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Step 状态机节点。
type Step string

const (
	StepRetrieve Step = "retrieve"
	StepGenerate Step = "generate"
	StepValidate Step = "validate"
	StepDone     Step = "done"
)

// StepEvent 每个节点完成后发出的事件。
type StepEvent struct {
	Step  Step
	State *ConversationState
	// Verdict 仅在 StepValidate 时有效。
	Verdict ValidationVerdict
}
