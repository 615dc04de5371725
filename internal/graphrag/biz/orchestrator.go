package biz

import (
	"context"
	"slices"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/pkg/infra/tracing"
	"github.com/kart-io/graphrag/pkg/llm"
)

const (
	// MaxRetries 重试预算，retry_count 超过该值时强制结束。
	MaxRetries = 3
	// MaxCycles 单次运行 VALIDATE 执行次数上限。
	MaxCycles = 4

	tracerName = "graphrag"
)

// Observer 接收每个节点完成后的事件，State 为快照。
type Observer func(StepEvent)

// Orchestrator 驱动 RETRIEVE → GENERATE → VALIDATE 状态机。
type Orchestrator struct {
	retriever   Retriever
	generator   AnswerGenerator
	validator   AnswerValidator
	checkpoints CheckpointStore
	locks       *keyedMutex
	metrics     *metrics.GraphRAGMetrics
	now         func() time.Time
}

// NewOrchestrator 创建编排器。
func NewOrchestrator(r Retriever, g AnswerGenerator, v AnswerValidator, cp CheckpointStore, m *metrics.GraphRAGMetrics) *Orchestrator {
	if cp == nil {
		cp = NewMemoryCheckpointStore()
	}
	return &Orchestrator{
		retriever:   r,
		generator:   g,
		validator:   v,
		checkpoints: cp,
		locks:       newKeyedMutex(),
		metrics:     orDefault(m),
		now:         time.Now,
	}
}

// Run 执行一轮对话。同一线程串行执行；ctx 取消时返回 ctx.Err() 且不写检查点。
func (o *Orchestrator) Run(ctx context.Context, threadID, query string, observe Observer) (*ConversationState, error) {
	unlock := o.locks.Lock(threadID)
	defer unlock()

	state, loaded := o.load(ctx, threadID)
	state.Query = query
	state.RetryCount = 0
	state.ValidationStatus = ""
	state.ValidationReason = ""
	history := slices.Clone(state.Messages)
	state.Messages = append(state.Messages, llm.Message{Role: llm.RoleUser, Content: query})

	log := logger.Global().WithCtx(ctx, "thread_id", threadID)
	log.Infow("conversation turn started", "query", query, "history", len(history))

	var (
		step    = StepRetrieve
		cycles  int
		verdict ValidationVerdict
	)
	for step != StepDone {
		if err := ctx.Err(); err != nil {
			o.metrics.RecordRun(err)
			log.Warnw("conversation turn cancelled", "step", string(step), "error", err.Error())
			return nil, err
		}

		current := step
		switch current {
		case StepRetrieve:
			o.retrieve(ctx, state)
			step = StepGenerate
		case StepGenerate:
			o.generate(ctx, state, history)
			step = StepValidate
		case StepValidate:
			verdict = o.validate(ctx, state)
			cycles++
			step = Route(verdict.Action, state.RetryCount, cycles)
		}

		if observe != nil {
			observe(StepEvent{Step: current, State: state.clone(), Verdict: verdict})
		}
	}

	// 最后一次校验期间被取消时校验器已放行，结束前再检查一次。
	if err := ctx.Err(); err != nil {
		o.metrics.RecordRun(err)
		log.Warnw("conversation turn cancelled", "step", string(StepDone), "error", err.Error())
		return nil, err
	}

	if verdict.Action != ActionPass {
		o.metrics.RecordForcedTermination()
		log.Warnw("conversation turn ended without pass", "action", verdict.Action.String(), "retry_count", state.RetryCount)
	}

	state.UpdatedAt = o.now()
	if loaded {
		if err := o.checkpoints.Save(ctx, threadID, state); err != nil {
			log.Errorw("failed to save checkpoint", "error", err.Error())
		}
	} else {
		log.Warnw("checkpoint was not loaded, skipping save to keep existing history")
	}
	o.metrics.RecordRun(nil)
	log.Infow("conversation turn finished", "validation_status", string(state.ValidationStatus), "retry_count", state.RetryCount, "cycles", cycles)
	return state, nil
}

// Route 根据校验动作决定下一步。retryCount 为本次校验后的计数。
func Route(action Action, retryCount, cycles int) Step {
	switch action {
	case ActionPass:
		return StepDone
	case ActionRetryRetrieval, ActionRetryGeneration:
		if retryCount > MaxRetries || cycles >= MaxCycles {
			return StepDone
		}
		if action == ActionRetryRetrieval {
			return StepRetrieve
		}
		return StepGenerate
	case ActionUnknown:
		return StepDone
	default:
		return StepDone
	}
}

// load 读取线程检查点。读取失败时以空状态继续本轮，loaded 为 false，本轮结束后不回写，
// 避免覆盖已有历史。
func (o *Orchestrator) load(ctx context.Context, threadID string) (state *ConversationState, loaded bool) {
	st, err := o.checkpoints.Load(ctx, threadID)
	if err != nil {
		logger.Warnw("failed to load checkpoint, answering without history", "thread_id", threadID, "error", err.Error())
		return &ConversationState{}, false
	}
	if st == nil {
		st = &ConversationState{}
	}
	return st, true
}

func startStep(ctx context.Context, name string, state *ConversationState) (context.Context, trace.Span) {
	ctx, span := tracing.StartSpan(ctx, tracerName, name)
	span.SetAttributes(attribute.Int("graphrag.retry_count", state.RetryCount))
	return ctx, span
}

func (o *Orchestrator) retrieve(ctx context.Context, state *ConversationState) {
	ctx, span := startStep(ctx, "graphrag.retrieve", state)
	defer span.End()

	res := o.retriever.Retrieve(ctx, state.Query)
	state.Entities = res.Entities
	state.GraphContext = res.GraphContext
	state.RagContext = res.RagContext
	span.SetAttributes(attribute.Int("graphrag.entities", len(res.Entities)))
}

func (o *Orchestrator) generate(ctx context.Context, state *ConversationState, history []llm.Message) {
	ctx, span := startStep(ctx, "graphrag.generate", state)
	defer span.End()

	in := GenerateInput{
		Context:    state.RagContext,
		History:    history,
		Question:   state.Query,
		RetryCount: state.RetryCount,
	}
	if state.RetryCount > 0 {
		in.PreviousReason = state.ValidationReason
	}
	state.Answer = o.generator.Generate(ctx, in)
}

func (o *Orchestrator) validate(ctx context.Context, state *ConversationState) ValidationVerdict {
	ctx, span := startStep(ctx, "graphrag.validate", state)
	defer span.End()

	verdict, ok := o.validator.Validate(ctx, state.Query, state.Answer, state.RagContext)
	o.metrics.RecordVerdict(verdict.Action.String())

	if verdict.Action != ActionPass {
		state.RetryCount++
	}
	state.ValidationStatus = StatusOf(verdict.Action)
	state.ValidationReason = verdict.Reason
	if verdict.Action == ActionPass {
		state.Messages = append(state.Messages, llm.Message{Role: llm.RoleAssistant, Content: state.Answer})
	}

	span.SetAttributes(
		attribute.String("graphrag.action", verdict.Action.String()),
		attribute.Bool("graphrag.validator_ok", ok),
	)
	logger.Infow("answer validated", "action", verdict.Action.String(), "reason", verdict.Reason, "retry_count", state.RetryCount, "validator_ok", ok)
	return verdict
}

func (s *ConversationState) clone() *ConversationState {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.Entities = slices.Clone(s.Entities)
	return &c
}
