package biz

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/llm"
)

// scriptedChat 依次返回预设回复，用尽后重复最后一个。
type scriptedChat struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   [][]llm.Message
}

func (c *scriptedChat) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.calls)
	c.calls = append(c.calls, msgs)
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	if len(c.replies) == 0 {
		return "", nil
	}
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return c.replies[i], nil
}

func (c *scriptedChat) Generate(ctx context.Context, prompt, system string) (string, error) {
	return c.Chat(ctx, []llm.Message{{Role: llm.RoleSystem, Content: system}, {Role: llm.RoleUser, Content: prompt}})
}

func (c *scriptedChat) Name() string { return "scripted" }

// hashEmbedder 以文本长度生成确定向量，failOn 中的文本返回错误。
type hashEmbedder struct {
	dim    int
	failOn map[string]bool
	calls  int
	mu     sync.Mutex
}

func (e *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *hashEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.failOn[text] {
		return nil, errors.New("embedding backend down")
	}
	dim := e.dim
	if dim == 0 {
		dim = 4
	}
	v := make([]float32, dim)
	v[0] = float32(len([]rune(text)))
	return v, nil
}

func (e *hashEmbedder) Name() string { return "hash" }

// memVectors 以查询实体为键返回预设命中，同时支持写入与计数。
type memVectors struct {
	mu      sync.Mutex
	hits    map[string][]store.ScoredEntity
	byLen   map[float32]string
	points  map[string]store.EntityDocument
	exists  bool
	dim     int
	failErr error
}

func newMemVectors() *memVectors {
	return &memVectors{
		hits:   map[string][]store.ScoredEntity{},
		byLen:  map[float32]string{},
		points: map[string]store.EntityDocument{},
	}
}

// on 注册查询实体 q 的命中；hashEmbedder 用长度编码文本，测试中保证长度唯一。
func (m *memVectors) on(q string, hits ...store.ScoredEntity) *memVectors {
	m.hits[q] = hits
	m.byLen[float32(len([]rune(q)))] = q
	return m
}

func (m *memVectors) EnsureCollection(_ context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		m.exists, m.dim = true, dim
	}
	return m.failErr
}

func (m *memVectors) Recreate(_ context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists, m.dim = true, dim
	m.points = map[string]store.EntityDocument{}
	return m.failErr
}

func (m *memVectors) Upsert(_ context.Context, docs []store.EntityDocument, _ [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	for _, d := range docs {
		m.points[d.Name] = d
	}
	return nil
}

func (m *memVectors) Search(_ context.Context, vector []float32, k int) ([]store.ScoredEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	hits := m.hits[m.byLen[vector[0]]]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memVectors) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.points)), m.failErr
}

func (m *memVectors) Exists(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists, m.failErr
}

func (m *memVectors) Ping(context.Context) error { return m.failErr }
func (m *memVectors) Name() string               { return "mem" }

// memGraph 固定关系与实体。
type memGraph struct {
	relations []store.Relation
	entities  []store.EntityRecord
	err       error
	gotNames  []string
}

func (g *memGraph) Relations(_ context.Context, names []string, limit int) ([]store.Relation, error) {
	g.gotNames = names
	if g.err != nil {
		return nil, g.err
	}
	rels := g.relations
	if len(rels) > limit {
		rels = rels[:limit]
	}
	return rels, nil
}

func (g *memGraph) Entities(context.Context) ([]store.EntityRecord, error) {
	return g.entities, g.err
}

func (g *memGraph) Ping(context.Context) error { return g.err }
func (g *memGraph) Name() string               { return "memgraph" }

// stubRetriever 返回固定检索结果并计数。
type stubRetriever struct {
	mu     sync.Mutex
	result RetrievalResult
	calls  int
}

func (r *stubRetriever) Retrieve(context.Context, string) RetrievalResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.result
}

// stubGenerator 记录每次输入。
type stubGenerator struct {
	mu     sync.Mutex
	inputs []GenerateInput
	answer func(n int) string
}

func (g *stubGenerator) Generate(_ context.Context, in GenerateInput) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inputs = append(g.inputs, in)
	if g.answer != nil {
		return g.answer(len(g.inputs))
	}
	return "answer"
}

// stubValidator 依次返回预设结论，用尽后重复最后一个。
type stubValidator struct {
	mu       sync.Mutex
	verdicts []ValidationVerdict
	calls    int
	hook     func()
}

func (v *stubValidator) Validate(context.Context, string, string, string) (ValidationVerdict, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.hook != nil {
		v.hook()
	}
	i := min(v.calls, len(v.verdicts)-1)
	v.calls++
	return v.verdicts[i], true
}

func verdictOf(a Action, reason string) ValidationVerdict {
	return ValidationVerdict{IsValid: a == ActionPass, Action: a, Reason: reason}
}

func names(ms []MatchedEntity) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func sortedKeys(m map[string]store.EntityDocument) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
