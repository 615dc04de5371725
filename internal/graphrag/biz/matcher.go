package biz

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/store"
	"github.com/kart-io/graphrag/pkg/llm"
)

const (
	// maxQueryEntities 参与匹配与关系查询的实体上限。
	maxQueryEntities = 3
	// lookupK 每个实体的近邻数。
	lookupK = 2

	defaultTopK          = 5
	defaultLookupTimeout = 10 * time.Second
	unknownEntityType    = "unknown"
)

// EntityMatcher 将抽取的实体映射到知识库中的实体。
type EntityMatcher interface {
	Match(ctx context.Context, entities []string, topK int) []MatchedEntity
}

// Matcher 基于向量相似度的实体匹配器。
type Matcher struct {
	vectors  store.VectorStore
	embedder llm.EmbeddingProvider
	timeout  time.Duration
	metrics  *metrics.GraphRAGMetrics
}

var _ EntityMatcher = (*Matcher)(nil)

// NewMatcher 创建实体匹配器，timeout 为单个实体查询的超时。
func NewMatcher(vectors store.VectorStore, embedder llm.EmbeddingProvider, timeout time.Duration, m *metrics.GraphRAGMetrics) *Matcher {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Matcher{vectors: vectors, embedder: embedder, timeout: timeout, metrics: orDefault(m)}
}

// Match 并发查询前三个实体的近邻，按名称合并取最高分，降序截断到 topK。
func (m *Matcher) Match(ctx context.Context, entities []string, topK int) []MatchedEntity {
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(entities) > maxQueryEntities {
		entities = entities[:maxQueryEntities]
	}
	if len(entities) == 0 {
		return nil
	}

	groups := make([][]store.ScoredEntity, len(entities))
	var g errgroup.Group
	g.SetLimit(maxQueryEntities)
	for i, entity := range entities {
		g.Go(func() error {
			hits, err := m.lookup(ctx, entity)
			if err != nil {
				m.metrics.RecordLookupFailure()
				logger.Warnw("entity lookup failed", "entity", entity, "error", err.Error())
				return nil
			}
			groups[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	return mergeMatches(entities, groups, topK)
}

func (m *Matcher) lookup(ctx context.Context, entity string) ([]store.ScoredEntity, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	vec, err := m.embedder.EmbedSingle(ctx, entity)
	if err != nil {
		return nil, err
	}
	return m.vectors.Search(ctx, vec, lookupK)
}

// mergeMatches groups[i] 是 entities[i] 的命中结果。
func mergeMatches(entities []string, groups [][]store.ScoredEntity, topK int) []MatchedEntity {
	best := make(map[string]MatchedEntity)
	for i, hits := range groups {
		for _, h := range hits {
			name := h.Name
			if name == "" {
				name = entities[i]
			}
			typ := h.Type
			if typ == "" {
				typ = unknownEntityType
			}
			if cur, ok := best[name]; ok && cur.Score >= h.Score {
				continue
			}
			best[name] = MatchedEntity{Name: name, Score: h.Score, Type: typ}
		}
	}

	out := make([]MatchedEntity, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b MatchedEntity) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
