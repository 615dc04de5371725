package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/pkg/llm"
)

type failingCheckpoints struct{ saves int }

func (f *failingCheckpoints) Load(context.Context, string) (*ConversationState, error) {
	return nil, errors.New("redis down")
}

func (f *failingCheckpoints) Save(context.Context, string, *ConversationState) error {
	f.saves++
	return errors.New("redis down")
}

// flakyCheckpoints 在 failLoad 为 true 时读取失败，写入照常。
type flakyCheckpoints struct {
	*MemoryCheckpointStore
	failLoad bool
}

func (f *flakyCheckpoints) Load(ctx context.Context, threadID string) (*ConversationState, error) {
	if f.failLoad {
		return nil, errors.New("i/o timeout")
	}
	return f.MemoryCheckpointStore.Load(ctx, threadID)
}

// cancellingChat 在调用时取消运行上下文，并返回 ctx.Err()。
type cancellingChat struct{ cancel context.CancelFunc }

func (c cancellingChat) Chat(ctx context.Context, _ []llm.Message) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

func (c cancellingChat) Generate(ctx context.Context, _, _ string) (string, error) {
	return c.Chat(ctx, nil)
}

func (c cancellingChat) Name() string { return "cancelling" }

func newTestOrchestrator(v *stubValidator) (*Orchestrator, *stubRetriever, *stubGenerator, *MemoryCheckpointStore) {
	r := &stubRetriever{result: RetrievalResult{
		Entities:     []string{"马斯克"},
		GraphContext: "马斯克 -[创立]-> SpaceX",
		RagContext:   "涉及实体：马斯克\n知识图谱关系：\n马斯克 -[创立]-> SpaceX",
	}}
	g := &stubGenerator{answer: func(n int) string { return fmt.Sprintf("draft-%d", n) }}
	cp := NewMemoryCheckpointStore()
	return NewOrchestrator(r, g, v, cp, metrics.New()), r, g, cp
}

func TestRunPassOnFirstCycle(t *testing.T) {
	o, r, g, cp := newTestOrchestrator(&stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionPass, "准确")}})

	var steps []Step
	st, err := o.Run(context.Background(), "t1", "谁创立了 SpaceX？", func(e StepEvent) { steps = append(steps, e.Step) })
	require.NoError(t, err)

	assert.Equal(t, []Step{StepRetrieve, StepGenerate, StepValidate}, steps)
	assert.Equal(t, 1, r.calls)
	assert.Len(t, g.inputs, 1)
	assert.Equal(t, "draft-1", st.Answer)
	assert.Equal(t, StatusPass, st.ValidationStatus)
	assert.Equal(t, 0, st.RetryCount)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "谁创立了 SpaceX？"},
		{Role: llm.RoleAssistant, Content: "draft-1"},
	}, st.Messages)

	saved, err := cp.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, st.Messages, saved.Messages)
	assert.False(t, saved.UpdatedAt.IsZero())
}

func TestRunRetryGenerationCarriesReason(t *testing.T) {
	o, r, g, _ := newTestOrchestrator(&stubValidator{verdicts: []ValidationVerdict{
		verdictOf(ActionRetryGeneration, "遗漏了星舰"),
		verdictOf(ActionPass, ""),
	}})

	st, err := o.Run(context.Background(), "t1", "q", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r.calls)
	require.Len(t, g.inputs, 2)
	assert.Equal(t, 0, g.inputs[0].RetryCount)
	assert.Equal(t, 1, g.inputs[1].RetryCount)
	assert.Equal(t, "遗漏了星舰", g.inputs[1].PreviousReason)
	assert.Contains(t, BuildGenerationMessages(g.inputs[1])[0].Content, "遗漏了星舰")
	assert.Equal(t, 1, st.RetryCount)
	assert.Equal(t, "draft-2", st.Answer)
}

func TestRunRetryRetrievalRequeries(t *testing.T) {
	o, r, g, _ := newTestOrchestrator(&stubValidator{verdicts: []ValidationVerdict{
		verdictOf(ActionRetryRetrieval, "实体不对"),
		verdictOf(ActionPass, ""),
	}})

	var steps []Step
	_, err := o.Run(context.Background(), "t1", "q", func(e StepEvent) { steps = append(steps, e.Step) })
	require.NoError(t, err)

	assert.Equal(t, []Step{StepRetrieve, StepGenerate, StepValidate, StepRetrieve, StepGenerate, StepValidate}, steps)
	assert.Equal(t, 2, r.calls)
	assert.Equal(t, "实体不对", g.inputs[1].PreviousReason)
}

func TestRunForcedTerminationAfterFourCycles(t *testing.T) {
	v := &stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionRetryGeneration, "still wrong")}}
	o, _, g, _ := newTestOrchestrator(v)

	st, err := o.Run(context.Background(), "t1", "q", nil)
	require.NoError(t, err)

	assert.Equal(t, MaxCycles, v.calls)
	assert.Len(t, g.inputs, 4)
	assert.Equal(t, 4, st.RetryCount)
	assert.Equal(t, StatusRetryGeneration, st.ValidationStatus)
	assert.Equal(t, "draft-4", st.Answer)
	// 未通过的草稿不进入历史
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "q"}}, st.Messages)
	assert.EqualValues(t, 1, o.metrics.Stats()["runs"].(map[string]any)["forced_termination"])
}

func TestRunUnknownActionEnds(t *testing.T) {
	v := &stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionUnknown, "??")}}
	o, _, _, _ := newTestOrchestrator(v)

	st, err := o.Run(context.Background(), "t1", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v.calls)
	assert.Equal(t, StatusError, st.ValidationStatus)
	assert.Equal(t, 1, st.RetryCount)
}

func TestRunWithZeroEntitiesReachesDone(t *testing.T) {
	m := metrics.New()
	retriever := NewHybridRetriever(fixedExtractor(nil), &fixedMatcher{}, fixedFetcher(""), 5, m)
	g := &stubGenerator{}
	o := NewOrchestrator(retriever, g, &stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionPass, "")}}, nil, m)

	st, err := o.Run(context.Background(), "t1", "你好", nil)
	require.NoError(t, err)
	assert.Empty(t, st.Entities)
	assert.Equal(t, "", st.GraphContext)
	assert.Equal(t, FallbackContext, st.RagContext)
	assert.Equal(t, FallbackContext, g.inputs[0].Context)
}

func TestRunHistoryAcrossTurns(t *testing.T) {
	o, _, g, _ := newTestOrchestrator(&stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionPass, "")}})

	_, err := o.Run(context.Background(), "t1", "第一问", nil)
	require.NoError(t, err)
	st, err := o.Run(context.Background(), "t1", "第二问", nil)
	require.NoError(t, err)

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "第一问"},
		{Role: llm.RoleAssistant, Content: "draft-1"},
	}, g.inputs[1].History)
	assert.Len(t, st.Messages, 4)

	// 其他线程互不影响
	other, err := o.Run(context.Background(), "t2", "别的问题", nil)
	require.NoError(t, err)
	assert.Len(t, other.Messages, 2)
}

func TestRunCancelledDoesNotSave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := &stubValidator{
		verdicts: []ValidationVerdict{verdictOf(ActionRetryGeneration, "x")},
		hook:     cancel,
	}
	o, _, _, cp := newTestOrchestrator(v)

	st, err := o.Run(ctx, "t1", "q", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, st)

	saved, err := cp.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestRunCancelledDuringFinalValidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := metrics.New()
	o, _, _, cp := newTestOrchestrator(nil)
	o.validator = NewValidator(cancellingChat{cancel: cancel}, time.Second, m)

	st, err := o.Run(ctx, "t1", "q", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, st)

	saved, err := cp.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, saved, "unvalidated answer must not be checkpointed")
}

func TestRunCheckpointFailuresAreNotSurfaced(t *testing.T) {
	r := &stubRetriever{}
	cp := &failingCheckpoints{}
	o := NewOrchestrator(r, &stubGenerator{}, &stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionPass, "")}}, cp, metrics.New())

	st, err := o.Run(context.Background(), "t1", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", st.Answer)
	assert.Equal(t, 0, cp.saves, "state is not written back after a failed load")
}

func TestRunLoadFailureKeepsHistory(t *testing.T) {
	o, _, _, mem := newTestOrchestrator(&stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionPass, "")}})
	flaky := &flakyCheckpoints{MemoryCheckpointStore: mem}
	o.checkpoints = flaky

	_, err := o.Run(context.Background(), "t1", "第一问", nil)
	require.NoError(t, err)
	_, err = o.Run(context.Background(), "t1", "第二问", nil)
	require.NoError(t, err)

	flaky.failLoad = true
	st, err := o.Run(context.Background(), "t1", "第三问", nil)
	require.NoError(t, err)
	assert.Len(t, st.Messages, 2)

	saved, err := mem.Load(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, saved.Messages, 4)
	assert.Equal(t, "第一问", saved.Messages[0].Content)
	assert.Equal(t, "第二问", saved.Messages[2].Content)
}

func TestRunSerializesPerThread(t *testing.T) {
	var active, maxActive atomic.Int32
	v := &stubValidator{verdicts: []ValidationVerdict{verdictOf(ActionPass, "")}}
	r := &stubRetriever{}
	g := &stubGenerator{answer: func(int) string {
		n := active.Add(1)
		for {
			cur := maxActive.Load()
			if n <= cur || maxActive.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return "a"
	}}
	// stubGenerator 自带锁，这里换成无锁实现观察并发
	o := NewOrchestrator(r, unlockedGenerator{g.answer}, v, nil, metrics.New())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Run(context.Background(), "same-thread", "q", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive.Load())
	st, err := o.checkpoints.Load(context.Background(), "same-thread")
	require.NoError(t, err)
	assert.Len(t, st.Messages, 16)
	assert.Equal(t, 0, o.locks.size())
}

type unlockedGenerator struct{ fn func(int) string }

func (u unlockedGenerator) Generate(context.Context, GenerateInput) string { return u.fn(0) }

func TestRouteProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		action := Action(rapid.IntRange(int(ActionUnknown), int(ActionRetryGeneration)).Draw(t, "action"))
		retry := rapid.IntRange(0, 6).Draw(t, "retry")
		cycles := rapid.IntRange(1, 6).Draw(t, "cycles")

		next := Route(action, retry, cycles)

		wantDone := action == ActionPass || action == ActionUnknown || retry > MaxRetries || cycles >= MaxCycles
		if (next == StepDone) != wantDone {
			t.Fatalf("Route(%v, %d, %d) = %v", action, retry, cycles, next)
		}
		if !wantDone && action == ActionRetryRetrieval && next != StepRetrieve {
			t.Fatalf("retry_retrieval routed to %v", next)
		}
		if !wantDone && action == ActionRetryGeneration && next != StepGenerate {
			t.Fatalf("retry_generation routed to %v", next)
		}
	})
}

func TestRetryCountInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seq := rapid.SliceOfN(rapid.SampledFrom([]Action{ActionPass, ActionRetryRetrieval, ActionRetryGeneration, ActionUnknown}), 1, 6).Draw(t, "verdicts")
		verdicts := make([]ValidationVerdict, len(seq))
		for i, a := range seq {
			verdicts[i] = verdictOf(a, "r")
		}
		v := &stubValidator{verdicts: verdicts}
		o := NewOrchestrator(&stubRetriever{}, &stubGenerator{}, v, nil, metrics.New())

		st, err := o.Run(context.Background(), "t", "q", nil)
		if err != nil {
			t.Fatal(err)
		}

		// 按结论序列推演期望值
		retry, cycles := 0, 0
		for {
			a := verdicts[min(cycles, len(verdicts)-1)].Action
			cycles++
			if a != ActionPass {
				retry++
			}
			if Route(a, retry, cycles) == StepDone {
				break
			}
		}
		if st.RetryCount != retry || v.calls != cycles {
			t.Fatalf("retry=%d cycles=%d, want %d/%d", st.RetryCount, v.calls, retry, cycles)
		}
		if cycles > MaxCycles {
			t.Fatalf("exceeded max cycles: %d", cycles)
		}
	})
}

func TestKeyedMutexReleasesIdleKeys(t *testing.T) {
	k := newKeyedMutex()
	u1 := k.Lock("a")
	u2 := k.Lock("b")
	assert.Equal(t, 2, k.size())
	u1()
	u2()
	assert.Equal(t, 0, k.size())
}
